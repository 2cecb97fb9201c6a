package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/gatex/internal/visit"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <object-key> [object-key...]",
	Short: "Process images already present in the object store",
	Long: `Run the ingestion pipeline for one or more object keys, as if an
object-created event had arrived for each.

Example:
  gatex ingest 000111batch7camera1_2024_03_05_10_30_00.jpeg
  gatex ingest --bucket site-b --json 000222batch3camera2_2024_03_05_11_02_41.jpeg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().String("bucket", "", "Bucket holding the objects (default OBJECT_STORE_BUCKET)")
	ingestCmd.Flags().Bool("json", false, "Output results as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	bucket := mustGetString(cmd, "bucket")
	if bucket == "" {
		bucket = a.cfg.ObjectStore.Bucket
	}

	var (
		results []visit.Result
		failed  int
	)
	for _, key := range args {
		res, err := a.pipeline.Process(ctx, bucket, key)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Failed: %s: %v\n", key, err)
			continue
		}
		results = append(results, res)
		if !jsonOutput {
			printResult(res)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d object(s) failed", failed, len(args))
	}
	return nil
}

func printResult(res visit.Result) {
	switch {
	case res.Closed != "":
		fmt.Printf("%s: exit of batch %s on device %s\n", res.Key, res.Closed, res.DeviceID)
	default:
		fmt.Printf("%s: %s %s for batch %s on device %s\n", res.Key, res.Role, res.Outcome, res.BatchID, res.DeviceID)
	}
}
