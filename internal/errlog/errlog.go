// Package errlog is an error-only file logger with size-based rotation.
//
// Rotated files are gzip-compressed as error-<timestamp>.log.gz next to the
// live error.log, and only the newest maxBackups archives are kept. All
// functions are safe for concurrent use; Logf before Init is a no-op.
package errlog

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	logFileName = "error.log"

	// defaultRotateSize is the rotation threshold in bytes (10 MB).
	defaultRotateSize = 10 << 20
	// maxBackups is the number of compressed archives to keep.
	maxBackups = 5
	// recentReadLimit caps how much of the file RecentLines scans.
	recentReadLimit = 256 << 10
)

var (
	mu     sync.Mutex // protects Init / Close and the current pointer
	active *sink
)

// sink is the open error log.
type sink struct {
	mu         sync.Mutex
	dir        string
	path       string
	file       *os.File
	size       int64
	rotateSize int64
	line       []byte
}

// Init opens dir/error.log for appending. Calling Init while a log is open
// closes the old one first, so the directory can change on config reload.
func Init(dir string) error {
	if dir == "" {
		return fmt.Errorf("error log directory not set")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create error log directory %s: %w", dir, err)
	}
	s, err := openSink(dir, defaultRotateSize)
	if err != nil {
		return err
	}

	mu.Lock()
	old := active
	active = s
	mu.Unlock()

	if old != nil {
		old.close()
	}
	return nil
}

func openSink(dir string, rotateSize int64) (*sink, error) {
	path := filepath.Join(dir, logFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open error log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat error log file: %w", err)
	}
	return &sink{
		dir:        dir,
		path:       path,
		file:       f,
		size:       info.Size(),
		rotateSize: rotateSize,
	}, nil
}

func current() *sink {
	mu.Lock()
	defer mu.Unlock()
	return active
}

// Logf records an error. The message also goes to the standard logger so
// it shows up on the console.
func Logf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
	if s := current(); s != nil {
		s.write(time.Now(), format, args...)
	}
}

// Close flushes and closes the error log file. Call on application shutdown.
func Close() {
	mu.Lock()
	s := active
	active = nil
	mu.Unlock()

	if s != nil {
		s.close()
	}
}

// Path returns the live log file path, or "" before Init.
func Path() string {
	if s := current(); s != nil {
		return s.path
	}
	return ""
}

func (s *sink) write(now time.Time, format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}

	s.line = now.AppendFormat(s.line[:0], "2006/01/02 15:04:05")
	s.line = append(s.line, " [ERROR] "...)
	s.line = fmt.Appendf(s.line, format, args...)
	if s.line[len(s.line)-1] != '\n' {
		s.line = append(s.line, '\n')
	}

	n, err := s.file.Write(s.line)
	if err != nil {
		return
	}
	s.size += int64(n)
	if s.size >= s.rotateSize {
		s.rotate(now)
	}
}

// rotate compresses the live file into an archive and truncates it.
// Caller must hold s.mu.
func (s *sink) rotate(now time.Time) {
	s.file.Sync()
	s.file.Close()
	s.file = nil

	archive := filepath.Join(s.dir, "error-"+now.Format("20060102-150405.000")+".log.gz")
	if err := gzipFile(s.path, archive); err != nil {
		log.Printf("[ErrLog] compress %s: %v", s.path, err)
	}
	os.Truncate(s.path, 0)
	pruneArchives(s.dir, maxBackups)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("[ErrLog] reopen %s: %v", s.path, err)
		return
	}
	s.file = f
	s.size = 0
}

func (s *sink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		s.file.Sync()
		s.file.Close()
		s.file = nil
	}
}

// Archives returns the compressed archive names in dir, oldest first.
func Archives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	archives := []string{}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "error-") && strings.HasSuffix(name, ".log.gz") {
			archives = append(archives, name)
		}
	}
	sort.Strings(archives)
	return archives, nil
}

// pruneArchives keeps the newest keep archives in dir.
func pruneArchives(dir string, keep int) {
	archives, err := Archives(dir)
	if err != nil || len(archives) <= keep {
		return
	}
	for _, name := range archives[:len(archives)-keep] {
		os.Remove(filepath.Join(dir, name))
	}
}

// gzipFile writes a gzip copy of src to dst, removing dst on failure.
func gzipFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	gw, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		return err
	}
	if _, err = io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	if err = gw.Close(); err != nil {
		return err
	}
	return out.Close()
}

// RecentLines returns up to n of the last lines of the live log, oldest
// first. n <= 0 means 50.
func RecentLines(n int) ([]string, error) {
	if n <= 0 {
		n = 50
	}
	path := Path()
	if path == "" {
		return []string{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	start := info.Size() - recentReadLimit
	if start < 0 {
		start = 0
	}
	buf := make([]byte, info.Size()-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return nil, err
	}

	all := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	lines := make([]string, 0, n)
	for i := len(all) - 1; i >= 0 && len(lines) < n; i-- {
		if all[i] != "" {
			lines = append(lines, all[i])
		}
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}
