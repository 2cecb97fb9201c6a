package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/fact"
)

// SessionsHandler serves read-only session queries.
type SessionsHandler struct {
	store database.SessionReader
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(store database.SessionReader) *SessionsHandler {
	return &SessionsHandler{store: store}
}

// SessionResponse is the JSON form of a visitor session. The face thumbnail
// is served separately.
type SessionResponse struct {
	BatchID      string     `json:"batch_id"`
	DeviceID     string     `json:"device_id"`
	Date         string     `json:"date"`
	DayOfWeek    string     `json:"day_of_week"`
	EntryTime    time.Time  `json:"entry_time"`
	ExitTime     *time.Time `json:"exit_time"`
	IdentityText *string    `json:"identity_text"`
	PlateText    *string    `json:"plate_text"`
	HasFace      bool       `json:"has_face"`
	AlertSent    bool       `json:"alert_sent"`
	Inside       bool       `json:"inside"`
}

func toSessionResponse(s *database.VisitorSession) SessionResponse {
	return SessionResponse{
		BatchID:      s.BatchID,
		DeviceID:     s.DeviceID,
		Date:         s.Date,
		DayOfWeek:    s.DayOfWeek,
		EntryTime:    s.EntryTime,
		ExitTime:     s.ExitTime,
		IdentityText: s.IdentityText,
		PlateText:    s.PlateText,
		HasFace:      len(s.FaceThumbnail) > 0,
		AlertSent:    s.AlertSent,
		Inside:       s.Open(),
	}
}

// Get handles GET /api/v1/sessions/{batchID}
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

// Thumbnail handles GET /api/v1/sessions/{batchID}/thumbnail
func (h *SessionsHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if len(session.FaceThumbnail) == 0 {
		respondError(w, http.StatusNotFound, "no face captured for this session")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(session.FaceThumbnail)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(session.FaceThumbnail)
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request) (*database.VisitorSession, bool) {
	batchID := chi.URLParam(r, "batchID")
	session, err := h.store.GetByBatch(r.Context(), batchID)
	if err != nil {
		logger.Error().Err(err).Str("batch_id", sanitizeForLog(batchID)).Msg("failed to load session")
		respondError(w, statusForError(err), "failed to load session")
		return nil, false
	}
	if session == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

// ListByDevice handles GET /api/v1/devices/{deviceID}/sessions. With
// open=true it returns the visitors still inside, oldest first; otherwise
// the newest sessions up to limit.
func (h *SessionsHandler) ListByDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := fact.PadDeviceID(chi.URLParam(r, "deviceID"))
	query := r.URL.Query()

	openOnly := false
	if v := query.Get("open"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "open must be a boolean")
			return
		}
		openOnly = b
	}

	limit := database.DefaultRecentLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		sessions []database.VisitorSession
		err      error
	)
	if openOnly {
		sessions, err = h.store.ListOpenByDevice(r.Context(), deviceID)
	} else {
		sessions, err = h.store.ListRecent(r.Context(), deviceID, limit)
	}
	if err != nil {
		logger.Error().Err(err).Str("device_id", deviceID).Msg("failed to list sessions")
		respondError(w, statusForError(err), "failed to list sessions")
		return
	}

	out := make([]SessionResponse, len(sessions))
	for i := range sessions {
		out[i] = toSessionResponse(&sessions[i])
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"sessions":  out,
		"count":     len(out),
	})
}
