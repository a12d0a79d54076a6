package docx

import (
	"fmt"
	"strings"

	goword "github.com/VantageDataChat/GoWord"
)

// ExtractText reads a .docx package back into plain text.
func ExtractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("read docx: %v", r)
		}
	}()

	doc, err := goword.OpenFromBytes(data)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	return strings.TrimSpace(doc.ExtractText()), nil
}
