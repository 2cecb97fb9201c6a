package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/gatex/internal/config"
	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/kozaktomas/gatex/internal/visit"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <identifier>",
	Short: "Show how an image identifier is interpreted",
	Long: `Parse an image identifier and print its device, batch, camera role and
capture time. With --text, also print the visitor name and match key that
would be taken from that ID-card text.

Example:
  gatex parse 000111batch7camera1_2024_03_05_10_30_00.jpeg
  gatex parse 000111batch7camera1_2024_03_05_10_30_00.jpeg --text "Name: Ravi Kumar"`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().String("text", "", "ID-card text to extract a visitor name from")
	parseCmd.Flags().Bool("json", false, "Output as JSON")
}

type parseOutput struct {
	DeviceID string `json:"device_id"`
	BatchID  string `json:"batch_id"`
	Camera   int    `json:"camera"`
	Role     string `json:"role"`
	Captured string `json:"captured"`
	Name     string `json:"name,omitempty"`
	MatchKey string `json:"match_key,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	id, err := fact.Parse(args[0])
	if err != nil {
		return err
	}

	out := parseOutput{
		DeviceID: id.DeviceID,
		BatchID:  id.BatchID,
		Camera:   id.Camera,
		Captured: id.CaptureTime(cfg.Location()).Format("2006-01-02 15:04:05 MST"),
	}
	if role, err := fact.NewCameraRoles(cfg.Cameras.Roles).RoleOf(id); err == nil {
		out.Role = string(role)
	} else {
		out.Role = "unknown"
	}

	if text := mustGetString(cmd, "text"); text != "" {
		if name, ok := visit.ExtractName(text); ok {
			out.Name, out.MatchKey = name, visit.MatchKey(name)
		}
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Device:   %s\n", out.DeviceID)
	fmt.Printf("Batch:    %s\n", out.BatchID)
	fmt.Printf("Camera:   %d (%s)\n", out.Camera, out.Role)
	fmt.Printf("Captured: %s\n", out.Captured)
	if out.Name != "" {
		fmt.Printf("Name:     %s\n", out.Name)
		fmt.Printf("Match:    %s\n", out.MatchKey)
	}
	return nil
}
