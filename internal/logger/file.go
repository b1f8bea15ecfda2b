package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const dayLayout = "2006-01-02"

// DailyFile is an append-only log file that rotates when the calendar day
// changes and keeps a fixed number of days of backups.
type DailyFile struct {
	mu  sync.Mutex
	lj  *lumberjack.Logger
	day string
	now func() time.Time
}

// OpenDailyFile opens path for appending. An existing file last written on an
// earlier day is rotated away first.
func OpenDailyFile(path string, retentionDays int) (*DailyFile, error) {
	return openDailyFile(path, retentionDays, time.Now)
}

func openDailyFile(path string, retentionDays int, now func() time.Time) (*DailyFile, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is required")
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}

	f := &DailyFile{
		lj: &lumberjack.Logger{
			Filename:  path,
			MaxAge:    retentionDays,
			LocalTime: true,
		},
		day: now().Format(dayLayout),
		now: now,
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.ModTime().Format(dayLayout) != f.day {
			if err := f.lj.Rotate(); err != nil {
				return nil, fmt.Errorf("failed to rotate log file: %w", err)
			}
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return f, nil
}

// Write implements io.Writer
func (f *DailyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if day := f.now().Format(dayLayout); day != f.day {
		f.day = day
		if err := f.lj.Rotate(); err != nil {
			return 0, err
		}
	}
	return f.lj.Write(p)
}

// Close closes the underlying file
func (f *DailyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lj.Close()
}
