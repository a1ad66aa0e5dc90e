package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/webherbas/taskflow/internal/app"
)

const (
	filePrefix = "taskflow_backup_"
	fileSuffix = ".json"
)

// Exporter produces the backup payload.
type Exporter interface {
	Export() (app.ExportFile, error)
}

// Config holds backup settings.
type Config struct {
	Schedule string
	Dir      string
	Keep     int
	Logger   app.Logger
	Clock    func() time.Time
}

// Service writes export files into a directory on a cron schedule.
type Service struct {
	exporter Exporter
	cfg      Config

	mu   sync.Mutex
	cron *rcron.Cron
}

// NewService constructs a backup service.
func NewService(exporter Exporter, cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = app.NopLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{exporter: exporter, cfg: cfg}
}

// Start registers the schedule and runs until ctx is done. An empty
// schedule leaves the service idle.
func (s *Service) Start(ctx context.Context) error {
	schedule := strings.TrimSpace(s.cfg.Schedule)
	if schedule == "" {
		return nil
	}
	c := rcron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.cfg.Logger.Error("scheduled backup failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("register backup schedule %q: %w", schedule, err)
	}
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	s.cfg.Logger.Info("backup schedule started", "schedule", schedule, "dir", s.cfg.Dir, "keep", s.cfg.Keep)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule, waiting briefly for a running backup.
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.cfg.Logger.Warn("backup stop timed out waiting for running job")
	}
	s.cfg.Logger.Info("backup schedule stopped")
}

// RunOnce writes one backup file and prunes old ones. It returns the path
// written.
func (s *Service) RunOnce(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(s.cfg.Dir) == "" {
		return "", errors.New("backup dir is required")
	}
	file, err := s.exporter.Export()
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(s.cfg.Dir, Filename(s.cfg.Clock()))
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	s.cfg.Logger.Info("backup written", "path", path, "bytes", len(file.Data))
	if err := s.prune(); err != nil {
		s.cfg.Logger.Warn("backup prune failed", "dir", s.cfg.Dir, "err", err)
	}
	return path, nil
}

// Filename names a scheduled backup. Names sort chronologically.
func Filename(now time.Time) string {
	return filePrefix + now.UTC().Format("2006-01-02_150405") + fileSuffix
}

// List returns backup files in dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	slices.Sort(out)
	return out, nil
}

// prune keeps the newest Keep files; zero keeps everything.
func (s *Service) prune() error {
	if s.cfg.Keep <= 0 {
		return nil
	}
	files, err := List(s.cfg.Dir)
	if err != nil {
		return err
	}
	if len(files) <= s.cfg.Keep {
		return nil
	}
	var errs []error
	for _, path := range files[:len(files)-s.cfg.Keep] {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		s.cfg.Logger.Debug("backup pruned", "path", path)
	}
	return errors.Join(errs...)
}
