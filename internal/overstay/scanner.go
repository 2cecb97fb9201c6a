// Package overstay alerts the responsible contact once for every visitor
// who stays past the threshold without an exit.
package overstay

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/metrics"
	"github.com/kozaktomas/gatex/internal/notify"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "overstay").Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

// Options configures a Scanner.
type Options struct {
	Threshold     time.Duration
	Interval      time.Duration
	FallbackEmail string         // receives alerts for unmapped devices; empty skips them
	Location      *time.Location // zone used in alert bodies
	Now           func() time.Time
}

// SweepReport summarises one sweep.
type SweepReport struct {
	Threshold       time.Time `json:"threshold"`
	Candidates      int       `json:"candidates"`
	Sent            int       `json:"sent"`
	Failed          int       `json:"failed"`
	Skipped         int       `json:"skipped"`
	LocationMisses  int       `json:"location_misses"`
	MarkFailures    int       `json:"mark_failures"`
	AlertedBatchIDs []string  `json:"alerted_batch_ids"`
}

// Scanner finds open sessions older than the threshold and alerts once per session.
type Scanner struct {
	store     database.SessionStore
	directory database.DirectoryReader
	sender    notify.Sender
	opts      Options

	// sweeps from the ticker and the HTTP trigger must not interleave
	mu sync.Mutex
}

// NewScanner creates a scanner. Zero options fall back to a 2h threshold,
// a 5m interval and UTC.
func NewScanner(store database.SessionStore, directory database.DirectoryReader, sender notify.Sender, opts Options) *Scanner {
	if opts.Threshold <= 0 {
		opts.Threshold = 2 * time.Hour
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scanner{store: store, directory: directory, sender: sender, opts: opts}
}

// Sweep runs one pass. A directory or candidate query failure aborts the
// sweep before any alert; a failed send only skips that candidate, which
// stays unalerted and is retried next sweep.
func (s *Scanner) Sweep(ctx context.Context) (SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report := SweepReport{Threshold: s.opts.Now().Add(-s.opts.Threshold)}

	dir, err := s.directory.LoadDirectory(ctx)
	if err != nil {
		metrics.RecordSweep("aborted", time.Since(start).Seconds())
		return report, fmt.Errorf("load device directory: %w", err)
	}

	candidates, err := s.store.ListOverstayCandidates(ctx, report.Threshold)
	if err != nil {
		metrics.RecordSweep("aborted", time.Since(start).Seconds())
		return report, fmt.Errorf("list overstay candidates: %w", err)
	}
	report.Candidates = len(candidates)

	for i := range candidates {
		s.alert(ctx, dir, &candidates[i], &report)
	}

	metrics.RecordSweep("ok", time.Since(start).Seconds())
	logger.Info().
		Int("candidates", report.Candidates).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("overstay sweep finished")
	return report, nil
}

func (s *Scanner) alert(ctx context.Context, dir *database.Directory, session *database.VisitorSession, report *SweepReport) {
	log := logger.With().Str("device_id", session.DeviceID).Str("batch_id", session.BatchID).Logger()

	to, ok := dir.Contact(session.DeviceID)
	if !ok {
		metrics.RecordDirectoryMiss("contact")
		if s.opts.FallbackEmail == "" {
			report.Skipped++
			log.Warn().Msg("no customer contact for device, alert skipped")
			return
		}
		to = s.opts.FallbackEmail
	}

	location, ok := dir.Location(session.DeviceID)
	if !ok {
		metrics.RecordDirectoryMiss("location")
		report.LocationMisses++
	}

	subject, body := FormatAlert(session, location, s.opts.Threshold, s.opts.Location)
	if err := s.sender.SendEmail(ctx, to, subject, body); err != nil {
		metrics.RecordAlertFailure()
		report.Failed++
		log.Error().Err(err).Str("to", to).Msg("failed to send overstay alert")
		return
	}
	metrics.RecordAlertSent()
	report.Sent++

	if err := s.store.MarkAlerted(ctx, session.BatchID); err != nil {
		// The email went out; the next sweep will send it again.
		report.MarkFailures++
		log.Error().Err(err).Msg("alert sent but alert_sent not recorded")
		return
	}
	report.AlertedBatchIDs = append(report.AlertedBatchIDs, session.BatchID)
	log.Info().Str("to", to).Msg("overstay alert sent")
}

// Serve runs a sweep immediately and then on every interval until ctx is
// cancelled. It implements suture.Service.
func (s *Scanner) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			logger.Error().Err(err).Msg("overstay sweep aborted")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scanner) String() string {
	return "overstay-scanner"
}
