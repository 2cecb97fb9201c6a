package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/kozaktomas/gatex/internal/visit"
)

// maxEventBytes bounds the webhook body; events only carry object references.
const maxEventBytes = 1 << 20

// FactProcessor ingests one uploaded image.
type FactProcessor interface {
	Process(ctx context.Context, bucket, key string) (visit.Result, error)
}

// FactsHandler receives object-created notifications for captured images.
type FactsHandler struct {
	pipeline FactProcessor
}

// NewFactsHandler creates a new facts handler
func NewFactsHandler(pipeline FactProcessor) *FactsHandler {
	return &FactsHandler{pipeline: pipeline}
}

// factEvent accepts both an S3 event notification and a bare object reference.
type factEvent struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type objectRef struct {
	bucket, key string
}

// refs lists the referenced objects. S3 delivers keys URL-encoded.
func (e *factEvent) refs() []objectRef {
	var out []objectRef
	for _, rec := range e.Records {
		key := rec.S3.Object.Key
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		out = append(out, objectRef{bucket: rec.S3.Bucket.Name, key: key})
	}
	if len(out) == 0 && e.Key != "" {
		out = append(out, objectRef{bucket: e.Bucket, key: e.Key})
	}
	return out
}

type factResponse struct {
	Bucket string        `json:"bucket"`
	Key    string        `json:"key"`
	Status int           `json:"status"`
	Result *visit.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Ingest handles POST /api/v1/facts. Every record is processed; the response
// status is the most retry-worthy status among the records, so a producer
// that redelivers on 5xx replays the whole event. Replays are harmless
// because slot writes overwrite and exits are compare-and-set.
func (h *FactsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var event factEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	refs := event.refs()
	if len(refs) == 0 {
		respondError(w, http.StatusBadRequest, "no object references in event")
		return
	}

	status := http.StatusOK
	results := make([]factResponse, 0, len(refs))
	for _, ref := range refs {
		resp := factResponse{Bucket: ref.bucket, Key: ref.key, Status: http.StatusOK}
		result, err := h.pipeline.Process(r.Context(), ref.bucket, ref.key)
		if err != nil {
			resp.Status = statusForError(err)
			resp.Error = err.Error()
			logger.Warn().Err(err).
				Str("bucket", sanitizeForLog(ref.bucket)).
				Str("key", sanitizeForLog(ref.key)).
				Int("status", resp.Status).
				Msg("fact rejected")
		} else {
			resp.Result = &result
		}
		if statusRank(resp.Status) > statusRank(status) {
			status = resp.Status
		}
		results = append(results, resp)
	}

	respondJSON(w, status, map[string]any{"results": results})
}
