package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// workspace is the filesystem namespace of one run: a scratch directory
// for uploads, removed by Close, and an output directory kept for download.
type workspace struct {
	scratchDir string
	outputDir  string
}

func newWorkspace(scratchRoot, outputRoot, runID string) (*workspace, error) {
	if err := os.MkdirAll(scratchRoot, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	scratch, err := os.MkdirTemp(scratchRoot, runID+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	out := filepath.Join(outputRoot, runID)
	if err := os.MkdirAll(out, 0o755); err != nil {
		_ = os.RemoveAll(scratch)
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	return &workspace{scratchDir: scratch, outputDir: out}, nil
}

// Close removes the scratch directory and everything in it.
func (w *workspace) Close() error {
	return os.RemoveAll(w.scratchDir)
}

// save copies an upload into the scratch directory under its base name.
// fallback is used when the client name is unusable or already taken.
func (w *workspace) save(u *Upload, fallback string) (string, error) {
	name := SafeName(u.Filename, fallback)
	f, err := os.OpenFile(filepath.Join(w.scratchDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) && name != fallback {
		name = fallback
		f, err = os.OpenFile(filepath.Join(w.scratchDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSaveUpload, err)
	}
	if _, err := io.Copy(f, u.Body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("%w: %s: %w", ErrSaveUpload, name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSaveUpload, name, err)
	}
	return f.Name(), nil
}

func (w *workspace) write(name string, body []byte) (string, error) {
	p := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWriteFile, name, err)
	}
	return p, nil
}

// SafeName reduces a client supplied filename to a plain base name.
func SafeName(filename, fallback string) string {
	name := strings.ReplaceAll(filename, `\`, "/")
	name = filepath.Base(filepath.Clean("/" + name))
	switch name {
	case "", ".", "..", "/":
		return fallback
	}
	return name
}

// ClearDir removes every entry of root, creating root if it is missing.
func ClearDir(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PruneOutputs removes run directories under root last modified more than
// olderThan before now. Entries that are not run directories are kept.
func PruneOutputs(ctx context.Context, root string, olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", root, err)
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= olderThan {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
