package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/gatex/internal/overstay"
)

// Sweeper runs one overstay sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (overstay.SweepReport, error)
}

// OverstayHandler lets operators trigger a sweep without waiting for the ticker.
type OverstayHandler struct {
	scanner Sweeper
}

// NewOverstayHandler creates a new overstay handler
func NewOverstayHandler(scanner Sweeper) *OverstayHandler {
	return &OverstayHandler{scanner: scanner}
}

// Sweep handles POST /api/v1/overstay/sweep
func (h *OverstayHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.scanner.Sweep(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("manual overstay sweep failed")
		respondError(w, statusForError(err), "overstay sweep failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}
