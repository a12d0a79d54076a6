package render

import "strings"

// isTableSeparator reports whether a trimmed line is a header rule such as
// "|---|---|" or a bare "---" that follows table lines.
func isTableSeparator(line string) bool {
	return strings.HasPrefix(line, "|---") || strings.HasPrefix(line, "---")
}

// splitRow splits a pipe-delimited line into trimmed cells. The first and
// last elements are the artifacts of the leading and trailing pipe.
func splitRow(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) <= 2 {
		return nil
	}
	cells := parts[1 : len(parts)-1]
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// fitColumns makes a row cover exactly n columns: short rows are padded
// with empty cells, overflow cells are folded into the last column.
func fitColumns(cells []string, n int) []string {
	if n <= 0 || len(cells) == n {
		return cells
	}
	if len(cells) < n {
		out := make([]string, n)
		copy(out, cells)
		return out
	}
	out := make([]string, n)
	copy(out, cells[:n-1])
	var rest []string
	for _, c := range cells[n-1:] {
		if c != "" {
			rest = append(rest, c)
		}
	}
	out[n-1] = strings.Join(rest, " | ")
	return out
}

// ParseTable converts a contiguous run of pipe-delimited lines into a table.
// It returns nil when no data row survives (for example a run of separator
// lines only).
func ParseTable(lines []string, t Triggers) *Table {
	var rows [][]string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isTableSeparator(line) {
			continue
		}
		cells := splitRow(line)
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil
	}

	columns := len(rows[0])
	table := &Table{Rows: make([]TableRow, 0, len(rows))}
	for i, cells := range rows {
		header := i == 0
		first := Clean(cells[0])
		if t.IsMergeTrigger(first) {
			table.Rows = append(table.Rows, mergedRow(first, columns, len(cells), t))
			continue
		}
		table.Rows = append(table.Rows, plainRow(fitColumns(cells, columns), header, t))
	}
	return table
}

// mergedRow collapses a row into one bold cell spanning the whole table.
func mergedRow(text string, columns, own int, t Triggers) TableRow {
	span := columns
	if span <= 0 {
		span = own
	}
	if span <= 0 {
		span = 1
	}
	cell := TableCell{Text: text, ColumnSpan: span, Bold: true}
	if t.IsActivityTitle(text) {
		cell.Alignment = AlignCenter
	}
	if strings.TrimSpace(cell.Text) == "" {
		cell.Text = NBSP
		cell.Bold = false
	}
	return TableRow{Cells: []TableCell{cell}}
}

// plainRow renders one cell per column.
func plainRow(cells []string, header bool, t Triggers) TableRow {
	row := TableRow{Cells: make([]TableCell, 0, len(cells))}
	for _, raw := range cells {
		text := Clean(raw)
		cell := TableCell{
			Text:       text,
			ColumnSpan: 1,
			Bold:       header || t.IsBoldTrigger(text),
		}
		if header {
			cell.Alignment = AlignCenter
		}
		if !header && text != "" && !isMarked(text) && !t.IsActivityTitle(text) {
			cell.Text = bulleted(text)
		}
		if strings.TrimSpace(cell.Text) == "" {
			cell.Text = NBSP
			cell.Bold = false
		}
		row.Cells = append(row.Cells, cell)
	}
	return row
}
