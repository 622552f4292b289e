package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matthigger/oh-sched-web/internal/adapters/objectstore"
	"github.com/matthigger/oh-sched-web/internal/domain/usage"
	"github.com/matthigger/oh-sched-web/pkg/logger"
)

var (
	pullDir      string
	pullCombined string
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Usage record commands",
}

var usagePullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download every usage record from the bucket and merge them",
	RunE:  runUsagePull,
}

func init() {
	usagePullCmd.Flags().StringVar(&pullDir, "dir", "usage", "directory receiving one file per record")
	usagePullCmd.Flags().StringVar(&pullCombined, "combined", "", "merged CSV path (defaults to usage_file)")
	usageCmd.AddCommand(usagePullCmd)
	rootCmd.AddCommand(usageCmd)
}

func runUsagePull(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := usageStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("usage pull: no bucket configured (set OHSCHED_BUCKET or AWS_BUCKET)")
	}

	combined := pullCombined
	if combined == "" {
		combined = cfg.UsagePath()
	}
	n, skipped, err := pullUsage(cmd, store, pullDir, combined)
	if err != nil {
		return err
	}
	log.Info(ctx, "usage records pulled",
		logger.Int("records", n),
		logger.Int("skipped", skipped),
		logger.String("combined", combined),
	)
	return nil
}

// pullUsage mirrors the bucket into dir and writes the merged records to
// combined. It returns the number of records written and lines skipped.
func pullUsage(cmd *cobra.Command, store objectstore.Store, dir, combined string) (int, int, error) {
	paths, err := objectstore.Mirror(cmd.Context(), store, "", dir)
	if err != nil {
		return 0, 0, fmt.Errorf("mirror bucket: %w", err)
	}

	sources := make([]io.Reader, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return 0, 0, fmt.Errorf("open %s: %w", p, err)
		}
		defer f.Close()
		sources = append(sources, f)
	}
	records, skipped, err := usage.Merge(sources...)
	if err != nil {
		return 0, skipped, err
	}

	if err := writeFileAtomic(combined, func(w io.Writer) error { return usage.WriteCSV(w, records) }); err != nil {
		return 0, skipped, err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", dir)
	return len(records), skipped, nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".usage-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
