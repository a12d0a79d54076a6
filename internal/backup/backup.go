// Package backup writes and restores tar.gz snapshots of the service data.
//
// Archive layout:
//
//	giaoan.db       consistent database snapshot (VACUUM INTO)
//	config.json     service configuration
//	encryption.key  AES key for the encrypted config values
//	manifest.json   backup metadata
package backup

import (
	"archive/tar"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DBFileName is the database name inside the archive.
const DBFileName = "giaoan.db"

// Manifest records backup metadata and is saved inside the archive.
type Manifest struct {
	Timestamp   string         `json:"timestamp"`
	Hostname    string         `json:"hostname"`
	DBRowCounts map[string]int `json:"db_row_counts"`
}

// Options configures a backup.
type Options struct {
	DataDir   string    // directory holding config.json and encryption.key (default "./data")
	OutputDir string    // archive destination (default ".")
	Now       time.Time // archive timestamp (default time.Now())
}

// Result holds backup results.
type Result struct {
	ArchivePath  string
	FilesWritten int
	DBRows       int
	BytesWritten int64
}

// countedTables are reported in the manifest.
var countedTables = []string{"users", "lesson_plans"}

// Run writes a backup archive of db and the configuration files.
func Run(db *sql.DB, opts Options) (*Result, error) {
	if opts.DataDir == "" {
		opts.DataDir = "./data"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "local"
	}

	snapshotDir, err := os.MkdirTemp("", "giaoan-backup-")
	if err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	defer os.RemoveAll(snapshotDir)
	snapshot := filepath.Join(snapshotDir, DBFileName)
	if _, err := db.Exec("VACUUM INTO ?", snapshot); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}

	manifest := &Manifest{
		Timestamp:   opts.Now.Format(time.RFC3339),
		Hostname:    hostname,
		DBRowCounts: make(map[string]int),
	}
	result := &Result{
		ArchivePath: filepath.Join(opts.OutputDir,
			fmt.Sprintf("giaoan_%s_%s.tar.gz", hostname, opts.Now.Format("20060102-150405"))),
	}
	for _, t := range countedTables {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + t).Scan(&n); err == nil {
			manifest.DBRowCounts[t] = n
			result.DBRows += n
		}
	}

	out, err := os.Create(result.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	add := func(path, name string) error {
		n, err := addFileToTar(tw, path, name)
		if err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		result.BytesWritten += n
		result.FilesWritten++
		return nil
	}

	if err := add(snapshot, DBFileName); err != nil {
		return nil, err
	}
	for _, name := range []string{"config.json", "encryption.key"} {
		p := filepath.Join(opts.DataDir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := add(p, name); err != nil {
			return nil, err
		}
	}

	manifestData, _ := json.MarshalIndent(manifest, "", "  ")
	if _, err := addBytesToTar(tw, manifestData, "manifest.json", opts.Now); err != nil {
		return nil, fmt.Errorf("add manifest: %w", err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return result, nil
}

// Limits applied while extracting an archive.
const (
	maxRestoreFileSize = 2 << 30
	maxRestoreTotal    = 10 << 30
	maxRestoreFiles    = 1000
)

// Restore extracts a backup archive into targetDir and returns the number
// of files written. Links and paths escaping targetDir are rejected.
func Restore(archivePath, targetDir string) (int, error) {
	if targetDir == "" {
		targetDir = "./data"
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("decompress archive: %w", err)
	}
	defer gz.Close()

	root := filepath.Clean(targetDir)
	tr := tar.NewReader(gz)
	var files int
	var total int64
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return files, fmt.Errorf("read archive: %w", err)
		}

		target := filepath.Join(root, filepath.FromSlash(header.Name))
		if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return files, fmt.Errorf("illegal path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return files, fmt.Errorf("create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if header.Size > maxRestoreFileSize {
				return files, fmt.Errorf("file too large: %s (%d bytes)", header.Name, header.Size)
			}
			total += header.Size
			if total > maxRestoreTotal {
				return files, fmt.Errorf("archive exceeds extraction limit")
			}
			if files++; files > maxRestoreFiles {
				return files, fmt.Errorf("archive has more than %d files", maxRestoreFiles)
			}
			if err := extractFile(tr, target, header); err != nil {
				return files, err
			}
		default:
			return files, fmt.Errorf("unsupported entry type in archive: %s", header.Name)
		}
	}
	return files, nil
}

func extractFile(r io.Reader, target string, header *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0644)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, io.LimitReader(r, header.Size)); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	return out.Close()
}

// ReadManifest returns the manifest stored in an archive.
func ReadManifest(archivePath string) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("manifest.json not found in %s", archivePath)
		}
		if err != nil {
			return nil, err
		}
		if header.Name != "manifest.json" {
			continue
		}
		var m Manifest
		if err := json.NewDecoder(io.LimitReader(tr, 1<<20)).Decode(&m); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		return &m, nil
	}
}

// --- tar helpers ---

func addFileToTar(tw *tar.Writer, path, name string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return 0, err
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(tw, f)
}

func addBytesToTar(tw *tar.Writer, data []byte, name string, modTime time.Time) (int64, error) {
	header := &tar.Header{
		Name:    name,
		Size:    int64(len(data)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return 0, err
	}
	n, err := tw.Write(data)
	return int64(n), err
}
