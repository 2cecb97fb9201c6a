package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one overstay sweep",
	Long: `Find visitors who entered more than the overstay threshold ago and have
not exited, and send one alert email per session. Sessions already alerted
are never alerted again. Without RESEND_API_KEY the alerts are only logged.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().Bool("json", false, "Output the sweep report as JSON")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.scanner.Sweep(ctx)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Threshold:   %s\n", report.Threshold.In(a.cfg.Location()).Format("2006-01-02 15:04:05"))
	fmt.Printf("Candidates:  %d\n", report.Candidates)
	fmt.Printf("Alerts sent: %d\n", report.Sent)
	fmt.Printf("Failed:      %d\n", report.Failed)
	fmt.Printf("Skipped:     %d (no customer contact)\n", report.Skipped)
	if report.MarkFailures > 0 {
		fmt.Printf("Unmarked:    %d (will be alerted again)\n", report.MarkFailures)
	}
	return nil
}
