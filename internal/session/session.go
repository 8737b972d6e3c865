package session

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/LanguageMachines/timblserver/internal/classifier"
	"github.com/LanguageMachines/timblserver/internal/config"
)

// Session is per-connection state shared by all three protocol handlers:
// the raw I/O stream, a log-correlation trace id, and -- once bound -- a
// private classifier.Experiment. A Session holds at most one Experiment
// at a time (spec.md §3's invariant); calling Bind again disposes the
// previous one before installing the new one.
type Session struct {
	ID    uint64
	Trace uuid.UUID

	RW    io.ReadWriter
	Debug bool
	Log   zerolog.Logger

	Bases *config.BaseMap

	exp *classifier.Experiment
}

// New constructs a session bound to no experiment yet. rw is the
// connection's combined reader/writer; id is the server's monotonic
// accept counter (spec.md §3: "session identifier (accept counter)").
func New(id uint64, rw io.ReadWriter, debug bool, bases *config.BaseMap, log zerolog.Logger) *Session {
	trace := uuid.New()
	return &Session{
		ID:    id,
		Trace: trace,
		RW:    rw,
		Debug: debug,
		Bases: bases,
		Log:   log.With().Str("trace", trace.String()).Uint64("session", id).Logger(),
	}
}

// Bind clones base and installs it as this session's live experiment,
// discarding whatever experiment was previously bound (there is no
// explicit free beyond dropping the reference -- Go's GC reclaims it,
// matching how the teacher relies on GC rather than manual bookkeeping
// once a reference is dropped).
func (s *Session) Bind(base *classifier.Base) {
	s.exp = base.Clone(fmt.Sprintf("exp-%d", s.ID))
}

// Bound reports the currently bound experiment, or nil if none.
func (s *Session) Bound() *classifier.Experiment { return s.exp }

// Close releases the session's experiment. Called once per connection on
// EXIT or disconnect.
func (s *Session) Close() {
	s.exp = nil
}
