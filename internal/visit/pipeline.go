package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/kozaktomas/gatex/internal/metrics"
	"github.com/kozaktomas/gatex/internal/vision"
)

// ErrCollaborator marks failures of the object store or the vision model.
var ErrCollaborator = errors.New("collaborator failure")

// CollaboratorError wraps a failure outside the session store.
type CollaboratorError struct {
	Stage string // "fetch", "extract", "detect", "crop"
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaborator
}

// ObjectGetter fetches captured images.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Vision is the part of vision.Provider the pipeline needs.
type Vision interface {
	ExtractLines(ctx context.Context, image []byte) ([]string, error)
	DetectFaceBox(ctx context.Context, image []byte) (*vision.Box, error)
}

// Result reports what happened to one image.
type Result struct {
	TraceID  string    `json:"trace_id"`
	Bucket   string    `json:"bucket"`
	Key      string    `json:"key"`
	DeviceID string    `json:"device_id"`
	BatchID  string    `json:"batch_id"`
	Camera   int       `json:"camera"`
	Role     fact.Role `json:"role"`
	Captured time.Time `json:"captured"`
	Outcome  string    `json:"outcome"`
	Closed   string    `json:"closed_batch,omitempty"`
}

// Pipeline turns an uploaded image into a session update.
type Pipeline struct {
	roles      fact.CameraRoles
	loc        *time.Location
	objects    ObjectGetter
	vision     Vision
	correlator *Correlator
	exits      *ExitMatcher
}

// NewPipeline wires the ingestion steps. loc is the site time zone used to
// interpret identifier timestamps.
func NewPipeline(roles fact.CameraRoles, loc *time.Location, objects ObjectGetter, v Vision, correlator *Correlator, exits *ExitMatcher) *Pipeline {
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		roles:      roles,
		loc:        loc,
		objects:    objects,
		vision:     v,
		correlator: correlator,
		exits:      exits,
	}
}

// Process parses key, extracts the camera's contribution from the image and
// applies it. Malformed identifiers and unknown cameras fail before any I/O.
func (p *Pipeline) Process(ctx context.Context, bucket, key string) (Result, error) {
	res := Result{TraceID: uuid.NewString(), Bucket: bucket, Key: key}
	log := logger.With().Str("trace_id", res.TraceID).Str("key", key).Logger()

	id, err := fact.Parse(key)
	if err != nil {
		metrics.RecordFact("unknown", "rejected")
		log.Error().Err(err).Msg("rejecting fact")
		return res, err
	}
	role, err := p.roles.RoleOf(id)
	if err != nil {
		metrics.RecordFact("unknown", "rejected")
		log.Error().Err(err).Msg("rejecting fact")
		return res, err
	}

	res.DeviceID, res.BatchID, res.Camera, res.Role = id.DeviceID, id.BatchID, id.Camera, role
	res.Captured = id.CaptureTime(p.loc)

	f := Fact{ID: id, Role: role, Captured: res.Captured, TraceID: res.TraceID}
	if err := p.extract(ctx, bucket, key, &f); err != nil {
		metrics.RecordFact(string(role), "failed")
		log.Error().Err(err).Msg("extraction failed")
		return res, err
	}

	var out Outcome
	if role == fact.RoleID {
		out, err = p.exits.Handle(ctx, f)
	} else {
		out, err = p.correlator.Apply(ctx, f)
	}
	if err != nil {
		metrics.RecordFact(string(role), "failed")
		log.Error().Err(err).Msg("session update failed")
		return res, err
	}

	res.Outcome, res.Closed = out.Label(), out.ClosedBatch
	metrics.RecordFact(string(role), res.Outcome)
	log.Info().
		Str("device_id", id.DeviceID).
		Str("batch_id", id.BatchID).
		Str("role", string(role)).
		Str("outcome", res.Outcome).
		Msg("fact processed")
	return res, nil
}

// extract fills the fact's text or thumbnail from the image.
func (p *Pipeline) extract(ctx context.Context, bucket, key string, f *Fact) error {
	image, err := p.objects.GetObject(ctx, bucket, key)
	if err != nil {
		return &CollaboratorError{Stage: "fetch", Err: err}
	}

	switch f.Role {
	case fact.RoleID, fact.RolePlate:
		lines, err := p.vision.ExtractLines(ctx, image)
		if err != nil {
			return &CollaboratorError{Stage: "extract", Err: err}
		}
		if text := strings.TrimSpace(strings.Join(lines, " ")); text != "" {
			f.Text = &text
		}
	case fact.RoleFace:
		box, err := p.vision.DetectFaceBox(ctx, image)
		if err != nil {
			return &CollaboratorError{Stage: "detect", Err: err}
		}
		if box == nil {
			logger.Info().Str("trace_id", f.TraceID).Msg("no face detected")
			return nil
		}
		crop, err := vision.CropFace(image, *box)
		if err != nil {
			return &CollaboratorError{Stage: "crop", Err: err}
		}
		f.Thumbnail = crop
	default:
		return fmt.Errorf("no extraction for role %q", f.Role)
	}
	return nil
}
