package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mirror downloads every object under prefix into dir, keeping the key
// layout, and returns the local paths in key order.
func Mirror(ctx context.Context, store Store, prefix, dir string) ([]string, error) {
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue
		}
		local, err := localPath(root, key)
		if err != nil {
			return paths, err
		}
		body, err := store.Get(ctx, key)
		if err != nil {
			return paths, err
		}
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return paths, fmt.Errorf("create dir for %s: %w", key, err)
		}
		if err := os.WriteFile(local, body, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", local, err)
		}
		paths = append(paths, local)
	}
	return paths, nil
}

func localPath(root, key string) (string, error) {
	p := filepath.Join(root, filepath.FromSlash(key))
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}
	return p, nil
}
