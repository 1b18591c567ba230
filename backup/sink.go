package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpupo63/portfolio-site-backend/config"
	"github.com/rpupo63/portfolio-site-backend/errs"
)

// Sink stores a finished backup document and returns where it went.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// FileSink writes backups into a local directory.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{Dir: dir}
}

func (s *FileSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", errs.NewInvalidFieldError("name", "must be a plain file name")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}

// NewSink picks the S3 target when one is configured and falls back to the
// local directory otherwise.
func NewSink(ctx context.Context, cfg config.BackupConfig) (Sink, error) {
	if cfg.S3Enabled() {
		return NewS3Sink(ctx, cfg)
	}
	return NewFileSink(cfg.Dir), nil
}
