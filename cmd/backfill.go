package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <folder-path> [folder-path...]",
	Short: "Upload and ingest a folder of captured images",
	Long: `Upload captured images from one or more folders into the object store
and run the ingestion pipeline for each, in capture order.

Images are processed one at a time so an exit scan is never applied before
the entry it closes. Files whose names are not valid identifiers are
reported and skipped.
Supported formats: jpg, jpeg, png, bmp

Example:
  gatex backfill /mnt/gate-export/2024-03-05
  gatex backfill -r --bucket site-b /mnt/gate-export`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.Flags().BoolP("recursive", "r", false, "Search for images recursively in subdirectories")
	backfillCmd.Flags().String("bucket", "", "Bucket to upload into (default OBJECT_STORE_BUCKET)")
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}

// collectImages lists the image files under the given folders.
func collectImages(folderPaths []string, recursive bool) ([]string, error) {
	var filePaths []string
	for _, folderPath := range folderPaths {
		info, err := os.Stat(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot access folder %s: %w", folderPath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", folderPath)
		}

		if recursive {
			err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isImageFile(d.Name()) {
					filePaths = append(filePaths, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("cannot walk folder %s: %w", folderPath, err)
			}
			continue
		}

		entries, err := os.ReadDir(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read folder %s: %w", folderPath, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isImageFile(entry.Name()) {
				filePaths = append(filePaths, filepath.Join(folderPath, entry.Name()))
			}
		}
	}
	return filePaths, nil
}

// captureOrder sorts files by the capture time in their identifier, then by
// name. Unparseable names sort last and are rejected by the pipeline.
func captureOrder(filePaths []string) {
	captured := make(map[string]time.Time, len(filePaths))
	for _, p := range filePaths {
		if id, err := fact.Parse(filepath.Base(p)); err == nil {
			captured[p] = id.CaptureTime(time.UTC)
		}
	}
	sort.SliceStable(filePaths, func(i, j int) bool {
		ti, okI := captured[filePaths[i]]
		tj, okJ := captured[filePaths[j]]
		switch {
		case okI != okJ:
			return okI
		case okI && !ti.Equal(tj):
			return ti.Before(tj)
		}
		return filepath.Base(filePaths[i]) < filepath.Base(filePaths[j])
	})
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	filePaths, err := collectImages(args, mustGetBool(cmd, "recursive"))
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified folders.")
		return nil
	}
	captureOrder(filePaths)

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	bucket := mustGetString(cmd, "bucket")
	if bucket == "" {
		bucket = a.cfg.ObjectStore.Bucket
	}

	fmt.Printf("Found %d image(s) to ingest from %d folder(s)\n\n", len(filePaths), len(args))

	bar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	outcomes := make(map[string]int)
	var failures []string
	for _, filePath := range filePaths {
		key := filepath.Base(filePath)
		if err := backfillOne(ctx, a, bucket, filePath, key, outcomes); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", key, err))
		}
		bar.Add(1)
	}
	fmt.Println()

	for _, msg := range failures {
		fmt.Printf("Failed: %s\n", msg)
	}
	fmt.Printf("\nCreated: %d, merged: %d, exits: %d, failed: %d\n",
		outcomes["created"], outcomes["merged"], outcomes["exit"], len(failures))

	if len(failures) == len(filePaths) {
		return fmt.Errorf("no images were ingested successfully")
	}
	return nil
}

func backfillOne(ctx context.Context, a *app, bucket, filePath, key string, outcomes map[string]int) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := a.objects.PutObject(ctx, bucket, key, data); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	res, err := a.pipeline.Process(ctx, bucket, key)
	if err != nil {
		return err
	}
	outcomes[res.Outcome]++
	return nil
}
