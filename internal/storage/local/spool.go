// Package local implements the on-disk spool that holds uploaded log files
// until an import job has consumed them.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when an upload exceeds Config.MaxBytes.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Config captures the parameters for the spool directory.
type Config struct {
	// BaseDir is the directory spooled files are written to.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	// MaxBytes caps a single file; zero means unlimited.
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// Spool writes uploads to uniquely named files under a base directory.
type Spool struct {
	baseDir  string
	maxBytes int64
}

// New creates the spool, making BaseDir if needed and checking that it is
// writable.
func New(cfg Config) (*Spool, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Spool{baseDir: filepath.Clean(cfg.BaseDir), maxBytes: cfg.MaxBytes}, nil
}

// Dir returns the spool directory.
func (s *Spool) Dir() string {
	return s.baseDir
}

// Save streams r into a new file whose name keeps the extension of name and
// returns its path. Partial files are removed on failure.
func (s *Spool) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(s.baseDir, "upload-*"+safeExt(name))
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	path := f.Name()
	if !strings.HasPrefix(filepath.Clean(path), s.baseDir+string(filepath.Separator)) {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("path traversal detected")
	}

	src := io.Reader(&ctxReader{ctx: ctx, r: r})
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = fmt.Errorf("%w (%d bytes)", ErrTooLarge, s.maxBytes)
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close spool file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write spool file: %w", err)
	}
	return path, nil
}

// safeExt keeps a short alphanumeric extension so format sniffing by name
// still works on the spooled copy.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
