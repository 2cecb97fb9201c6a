package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/gatex/internal/web"
	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion server and the overstay scanner",
	Long: `Start the Gatex server.
The server accepts object-created events for captured images on
POST /api/v1/facts, answers session queries, exposes Prometheus metrics on
/metrics and runs the overstay scanner on its configured interval.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().Bool("no-scanner", false, "Do not run the periodic overstay scanner")
}

// supervisorHook logs suture events through zerolog.
func supervisorHook(e suture.Event) {
	logger.Warn().Fields(e.Map()).Msg(e.String())
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}

	server := web.NewServer(&a.cfg.Web, web.Deps{
		Pipeline: a.pipeline,
		Sessions: a.backend.Sessions,
		Scanner:  a.scanner,
	})

	sup := suture.New("gatex", suture.Spec{
		EventHook:        supervisorHook,
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	sup.Add(server)
	if mustGetBool(cmd, "no-scanner") {
		logger.Info().Msg("overstay scanner disabled")
	} else {
		sup.Add(a.scanner)
	}

	logger.Info().
		Str("addr", fmt.Sprintf("http://%s:%d", a.cfg.Web.Host, a.cfg.Web.Port)).
		Dur("overstay_threshold", a.cfg.Overstay.Threshold).
		Dur("overstay_interval", a.cfg.Overstay.Interval).
		Msg("starting gatex, press Ctrl+C to stop")

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}
	logger.Info().Msg("shut down")
	return nil
}
