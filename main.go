package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"
	"time"

	"giaoan/internal/backup"
	"giaoan/internal/config"
	"giaoan/internal/db"
	"giaoan/internal/docx"
	"giaoan/internal/errlog"
	"giaoan/internal/handler"
	"giaoan/internal/lesson"
	"giaoan/internal/router"
)

const configPath = "./data/config.json"

func main() {
	// Commands that work on files only
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "render":
			if err := runRender(os.Args[2:]); err != nil {
				fmt.Printf("Lỗi: %v\n", err)
				os.Exit(1)
			}
			return
		case "inspect":
			if err := runInspect(os.Args[2:]); err != nil {
				fmt.Printf("Lỗi: %v\n", err)
				os.Exit(1)
			}
			return
		case "restore":
			if err := runRestore(os.Args[2:]); err != nil {
				fmt.Printf("Lỗi: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			printUsage()
			return
		}
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// 1. Initialize ConfigManager and load config
	cm, err := config.NewConfigManager(configPath)
	if err != nil {
		log.Fatalf("Failed to create config manager: %v", err)
	}
	if err := cm.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := cm.Get()

	if err := errlog.Init(cfg.Log.ErrorDir); err != nil {
		log.Printf("[Main] error log disabled: %v", err)
	}
	defer errlog.Close()

	// Commands that need the configuration but not the database
	if len(os.Args) >= 2 && (os.Args[1] == "config" || os.Args[1] == "logs") {
		var err error
		if os.Args[1] == "config" {
			err = runConfig(cm, os.Args[2:])
		} else {
			err = runLogs(os.Args[2:], os.Stdout)
		}
		if err != nil {
			fmt.Printf("Lỗi: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// 2. Initialize database
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "backup":
			runBackup(os.Args[2:], database)
			return
		case "serve":
		default:
			fmt.Printf("Lệnh không hợp lệ: %s\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	// 3. Create App and register routes
	app := handler.NewApp(database, cm, nil)
	mux := http.NewServeMux()
	stopLimiters := router.Register(mux, app)
	defer stopLimiters()

	// 4. Start HTTP server with graceful shutdown
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Periodic cleanup of sessions and login attempts
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := app.SessionManager().CleanExpired(); err == nil && n > 0 {
				log.Printf("[Main] cleaned %d expired sessions", n)
			}
			app.LoginLimiter().CleanOld()
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown error: %v", err)
		}
	}()

	fmt.Printf("Giao an service starting on http://%s\n", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
	log.Println("Server stopped")
}

// printUsage prints CLI usage information.
func printUsage() {
	fmt.Println(`Cách dùng:
  giaoan [serve]                         khởi động dịch vụ HTTP (mặc định cổng 8080)
  giaoan render <plan.json> [out.docx]   xuất kế hoạch bài dạy JSON thành tệp Word
  giaoan inspect <file.docx>             in nội dung văn bản của tệp Word
  giaoan backup [--output <thư mục>]     sao lưu cơ sở dữ liệu và cấu hình
  giaoan restore [--target <thư mục>] <tệp sao lưu>
                                         khôi phục dữ liệu từ bản sao lưu
  giaoan config set <khóa> <giá trị>     thay đổi một mục cấu hình
  giaoan logs [n]                        in n dòng cuối của nhật ký lỗi (mặc định 50)
  giaoan help                            hiển thị trợ giúp

render:
  Nếu không chỉ định tệp đích, tên tệp được tạo từ tên bài dạy
  theo dạng Giao-An-<tên bài>.docx

backup:
  Bản sao lưu gồm ảnh chụp cơ sở dữ liệu, config.json và encryption.key.
  Tên tệp: giaoan_<máy chủ>_<ngày-giờ>.tar.gz

restore:
  Mặc định giải nén vào ./data. Dừng dịch vụ trước khi khôi phục.

config set:
  Khóa dạng server.port, llm.model_name, llm.api_key, session.ttl_hours ...
  Khởi động lại dịch vụ để áp dụng.`)
}

// runRender renders a plan file to a document on disk.
func runRender(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("cách dùng: giaoan render <plan.json> [out.docx]")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	p, err := lesson.DecodePlan(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}
	doc, err := docx.Render(p)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	out := docx.Filename(p.LessonTitle)
	if len(args) == 2 {
		out = args[1]
	}
	if err := os.WriteFile(out, doc, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("Đã tạo %s (%d bytes)\n", out, len(doc))
	return nil
}

// runInspect prints the text content of a document.
func runInspect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("cách dùng: giaoan inspect <file.docx>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	text, err := docx.ExtractText(data)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	fmt.Println(text)
	return nil
}

// runBackup writes a backup archive of the database and configuration.
func runBackup(args []string, database *sql.DB) {
	opts := backup.Options{DataDir: filepath.Dir(configPath)}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--output", "-o":
			if i+1 >= len(args) {
				fmt.Println("Lỗi: --output cần chỉ định thư mục")
				os.Exit(1)
			}
			opts.OutputDir = args[i+1]
			i++
		default:
			fmt.Printf("Tham số không hợp lệ: %s\n", args[i])
			fmt.Println("Cách dùng: giaoan backup [--output <thư mục>]")
			os.Exit(1)
		}
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			fmt.Printf("Không tạo được thư mục đích: %v\n", err)
			os.Exit(1)
		}
	}

	result, err := backup.Run(database, opts)
	if err != nil {
		fmt.Printf("Sao lưu thất bại: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sao lưu hoàn tất:\n")
	fmt.Printf("  Tệp: %s\n", result.ArchivePath)
	fmt.Printf("  Số tệp: %d, số dòng dữ liệu: %d\n", result.FilesWritten, result.DBRows)
	fmt.Printf("  Dung lượng: %.2f MB\n", float64(result.BytesWritten)/(1024*1024))
}

// runRestore restores data from a backup archive. The manifest is read and
// printed first, so an archive without one is refused before anything is
// written.
func runRestore(args []string) error {
	targetDir := filepath.Dir(configPath)
	var archivePath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--target", "-t":
			if i+1 >= len(args) {
				return fmt.Errorf("--target cần chỉ định thư mục")
			}
			targetDir = args[i+1]
			i++
		default:
			if archivePath != "" {
				return fmt.Errorf("tham số không hợp lệ: %s", args[i])
			}
			archivePath = args[i]
		}
	}

	if archivePath == "" {
		return fmt.Errorf("cần chỉ định tệp sao lưu\nCách dùng: giaoan restore [--target <thư mục>] <tệp sao lưu>")
	}

	m, err := backup.ReadManifest(archivePath)
	if err != nil {
		return fmt.Errorf("không đọc được bản sao lưu: %w", err)
	}
	fmt.Printf("Bản sao lưu tạo lúc %s trên máy %s\n", m.Timestamp, m.Hostname)
	tables := make([]string, 0, len(m.DBRowCounts))
	for t := range m.DBRowCounts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Printf("  %s: %d dòng\n", t, m.DBRowCounts[t])
	}

	fmt.Printf("Khôi phục %s vào %s ...\n", archivePath, targetDir)
	n, err := backup.Restore(archivePath, targetDir)
	if err != nil {
		return fmt.Errorf("khôi phục thất bại: %w", err)
	}
	fmt.Printf("Đã khôi phục %d tệp\n", n)
	return nil
}

// runConfig handles "config set <key> <value>".
func runConfig(cm *config.ConfigManager, args []string) error {
	if len(args) != 3 || args[0] != "set" {
		return fmt.Errorf("cách dùng: giaoan config set <khóa> <giá trị>")
	}
	key, raw := args[1], args[2]
	if err := cm.Update(map[string]interface{}{key: config.ParseValue(key, raw)}); err != nil {
		return err
	}
	log.Printf("[Config] %s updated", key)
	fmt.Printf("Đã cập nhật %s\n", key)
	return nil
}

// runLogs prints the last lines of the error log.
func runLogs(args []string, w io.Writer) error {
	n := 50
	switch len(args) {
	case 0:
	case 1:
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("số dòng không hợp lệ: %s", args[0])
		}
		n = v
	default:
		return fmt.Errorf("cách dùng: giaoan logs [n]")
	}

	path := errlog.Path()
	if path == "" {
		return fmt.Errorf("nhật ký lỗi chưa được bật")
	}
	lines, err := errlog.RecentLines(n)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	fmt.Fprintf(w, "Nhật ký lỗi: %s\n", path)
	if len(lines) == 0 {
		fmt.Fprintln(w, "(trống)")
		return nil
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}
