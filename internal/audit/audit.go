// Package audit builds audit records for calculations: a sortable ULID, the
// operation name and domain-separated digests of the canonical input and
// output.
package audit

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/rshade/co2e-engine/internal/canonical"
)

// ErrDigestMismatch is returned by Verify when a recomputed digest differs
// from the recorded one.
var ErrDigestMismatch = errors.New("audit digest mismatch")

// Record is the audit envelope for one calculation.
type Record struct {
	ID           ulid.ULID `json:"id"`
	Operation    string    `json:"operation"`
	InputDigest  string    `json:"inputDigest"`
	OutputDigest string    `json:"outputDigest"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Recorder creates Records. It is safe for concurrent use; IDs from one
// Recorder are strictly increasing.
type Recorder struct {
	mu        sync.Mutex
	entropy   io.Reader
	now       func() time.Time
	canonical []canonical.Option
	logger    zerolog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the clock used for CreatedAt and the ULID timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithEntropy sets the randomness source for ULIDs. It is wrapped in
// monotonic entropy.
func WithEntropy(src io.Reader) Option {
	return func(r *Recorder) {
		r.entropy = ulid.Monotonic(src, 0)
	}
}

// WithCanonicalOptions sets the canonical encoding options used for digests.
func WithCanonicalOptions(opts ...canonical.Option) Option {
	return func(r *Recorder) {
		r.canonical = opts
	}
}

// WithLogger attaches a logger; each record is logged at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger.With().Str("component", "audit").Logger()
	}
}

// NewRecorder returns a Recorder using crypto/rand entropy and the wall clock.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record digests input and output and returns a new Record for operation.
func (r *Recorder) Record(operation string, input, output any) (Record, error) {
	in, err := canonical.Digest(canonical.DomainInput, input, r.canonical...)
	if err != nil {
		return Record{}, fmt.Errorf("audit %s: %w", operation, err)
	}
	out, err := canonical.Digest(canonical.DomainOutput, output, r.canonical...)
	if err != nil {
		return Record{}, fmt.Errorf("audit %s: %w", operation, err)
	}

	r.mu.Lock()
	now := r.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), r.entropy)
	r.mu.Unlock()
	if err != nil {
		return Record{}, fmt.Errorf("audit %s: generating id: %w", operation, err)
	}

	rec := Record{
		ID:           id,
		Operation:    operation,
		InputDigest:  in,
		OutputDigest: out,
		CreatedAt:    now,
	}
	r.logger.Debug().
		Str("audit_id", id.String()).
		Str("operation", operation).
		Str("input_digest", in).
		Str("output_digest", out).
		Msg("calculation recorded")
	return rec, nil
}

// Verify recomputes both digests and reports ErrDigestMismatch if either
// differs. opts must match the options the record was created with.
func (rec Record) Verify(input, output any, opts ...canonical.Option) error {
	in, err := canonical.Digest(canonical.DomainInput, input, opts...)
	if err != nil {
		return err
	}
	if in != rec.InputDigest {
		return fmt.Errorf("%w: input of %s %s", ErrDigestMismatch, rec.Operation, rec.ID)
	}
	out, err := canonical.Digest(canonical.DomainOutput, output, opts...)
	if err != nil {
		return err
	}
	if out != rec.OutputDigest {
		return fmt.Errorf("%w: output of %s %s", ErrDigestMismatch, rec.Operation, rec.ID)
	}
	return nil
}
