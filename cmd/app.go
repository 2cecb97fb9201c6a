package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/gatex/internal/config"
	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/kozaktomas/gatex/internal/notify"
	"github.com/kozaktomas/gatex/internal/objectstore"
	"github.com/kozaktomas/gatex/internal/overstay"
	"github.com/kozaktomas/gatex/internal/vision"
	"github.com/kozaktomas/gatex/internal/visit"

	// Session store backends register themselves with database.Open.
	_ "github.com/kozaktomas/gatex/internal/database/mariadb"
	_ "github.com/kozaktomas/gatex/internal/database/postgres"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	backend  *database.Backend
	objects  *objectstore.Store
	vision   vision.Provider
	pipeline *visit.Pipeline
	scanner  *overstay.Scanner
}

// openApp loads configuration and opens the session store. Ingestion
// components are only built when withPipeline is set, so commands that
// never call the vision model do not need its credentials.
func openApp(ctx context.Context, withPipeline bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	logger.Info().Str("backend", database.BackendName(&cfg.Database)).Msg("connecting to session store")
	backend, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	a := &app{cfg: cfg, backend: backend}
	a.scanner = overstay.NewScanner(backend.Sessions, backend.Directory, notify.New(&cfg.Email), overstay.Options{
		Threshold:     cfg.Overstay.Threshold,
		Interval:      cfg.Overstay.Interval,
		FallbackEmail: cfg.Email.FallbackEmail,
		Location:      cfg.Location(),
	})

	if withPipeline {
		if err := a.buildPipeline(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) buildPipeline(ctx context.Context) error {
	objects, err := objectstore.New(a.cfg.ObjectStore.Dir)
	if err != nil {
		return fmt.Errorf("failed to open object store: %w", err)
	}
	provider, err := vision.New(ctx, &a.cfg.Vision)
	if err != nil {
		return fmt.Errorf("failed to create vision provider: %w", err)
	}

	correlator := visit.NewCorrelator(a.backend.Sessions)
	exits := visit.NewExitMatcher(a.backend.Sessions, correlator)
	roles := fact.NewCameraRoles(a.cfg.Cameras.Roles)

	a.objects = objects
	a.vision = provider
	a.pipeline = visit.NewPipeline(roles, a.cfg.Location(), objects, provider, correlator, exits)
	return nil
}

// Close releases the session store and logs vision usage.
func (a *app) Close() {
	if a.vision != nil {
		usage := a.vision.GetUsage()
		logger.Info().
			Str("provider", a.vision.Name()).
			Int("requests", usage.Requests).
			Int("input_tokens", usage.InputTokens).
			Int("output_tokens", usage.OutputTokens).
			Msg("vision usage")
	}
	if err := a.backend.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing session store")
	}
}
