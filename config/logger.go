package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

var (
	// 不同级别的日志记录器；SetupLogger 之前输出到 stderr
	InfoLogger    = log.New(os.Stderr, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	WarningLogger = log.New(os.Stderr, "WARNING: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger   = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
)

// SetupLogger writes every level to stdout and to logs/<date>.log under dir.
// The returned closer releases the log file.
func SetupLogger(dir string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	name := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	w := io.MultiWriter(os.Stdout, f)
	InfoLogger = log.New(w, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	WarningLogger = log.New(w, "WARNING: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(w, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	return f, nil
}

func Info(format string, v ...any) {
	_ = InfoLogger.Output(2, fmt.Sprintf(format, v...))
}

func Warning(format string, v ...any) {
	_ = WarningLogger.Output(2, fmt.Sprintf(format, v...))
}

func Error(format string, v ...any) {
	_ = ErrorLogger.Output(2, fmt.Sprintf(format, v...))
}
