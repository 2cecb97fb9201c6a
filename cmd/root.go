package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "cli").Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "gatex",
	Short: "Visitor session tracking for camera-equipped gates",
	Long: `Gatex turns the images captured at a gate into visitor sessions.

Each captured image is read by a vision model and merged into the session of
its batch. An ID-card scan whose name matches an open session closes that
session as an exit. Visitors who stay inside past the overstay threshold
trigger one alert email to the site contact.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if logLevel != "" {
		level = logLevel
	}
	setLogLevel(level)
}

// setLogLevel applies a textual zerolog level, keeping info for unknown values.
func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
