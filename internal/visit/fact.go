// Package visit stitches per-camera facts into visitor sessions and decides
// when an identity fact closes an open session.
package visit

import (
	"os"
	"time"

	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "visit").Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

// Fact is one camera's extracted contribution to a visit.
type Fact struct {
	ID        fact.Identifier
	Role      fact.Role
	Captured  time.Time // capture time in the site zone
	Text      *string   // OCR text for id and plate cameras
	Thumbnail []byte    // face crop; nil when no face was detected
	TraceID   string
}

// Outcome describes what a fact did to the session store.
type Outcome struct {
	Exit        bool   // an open session was closed
	ClosedBatch string // batch closed by the exit, if any
	Created     bool   // the fact created its own session
}

// Label is a short outcome name for logs and metrics.
func (o Outcome) Label() string {
	switch {
	case o.Exit:
		return "exit"
	case o.Created:
		return "created"
	default:
		return "merged"
	}
}
