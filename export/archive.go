package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"tool_custody/config"
	"tool_custody/custody"
)

// Archiver stores a serialized backup and returns where it went.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte) (string, error)
}

func NewArchiver(ctx context.Context, cfg config.Backup) (Archiver, error) {
	switch cfg.Driver {
	case "", "none":
		return disabledArchiver{}, nil
	case "fs":
		return &FSArchiver{Dir: cfg.Dir}, nil
	case "s3":
		return NewS3Archiver(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown backup driver %q", cfg.Driver)
}

// Archive serializes b and hands it to a.
func Archive(ctx context.Context, a Archiver, b Backup) (string, error) {
	body, err := b.JSON()
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	loc, err := a.Put(ctx, b.Key(), body)
	if err != nil {
		return "", err
	}
	config.Info("backup archived to %s (%d bytes)", loc, len(body))
	return loc, nil
}

type disabledArchiver struct{}

func (disabledArchiver) Put(context.Context, string, []byte) (string, error) {
	return "", fmt.Errorf("%w: backup archiving is disabled", custody.ErrValidation)
}

// FSArchiver writes backups below Dir.
type FSArchiver struct{ Dir string }

func (f *FSArchiver) Put(_ context.Context, key string, body []byte) (string, error) {
	path := filepath.Join(f.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}
