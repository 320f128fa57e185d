// internal/form/submit.go
//
// formcheck – Forms subsystem: consolidated Submit helper.
//
// Context
//   A submission moves pristine → submitting → submitted, or → rejected
//   when the token, fill time, or validation fails.  Submit performs the
//   whole sequence so handlers stay terse: verify token, check timing,
//   validate, consume the token, sanitize, run actions, and hand back the
//   blank record the client should reset to.
//
//   A token is consumed only once the record is valid, so a user who fixes
//   a rejected form can resubmit with the same token.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/formcheck/internal/cache"
	"github.com/yanizio/formcheck/internal/metrics"
	"github.com/yanizio/formcheck/internal/requestinfo"
	"github.com/yanizio/formcheck/internal/validation"
)

var (
	// ErrTooFast rejects forms submitted before MinFill elapsed.
	ErrTooFast = errors.New("form submitted too quickly")

	// ErrExpired rejects forms older than MaxFill.
	ErrExpired = errors.New("form expired")

	// ErrReplayed rejects a token that already carried a submission.  It
	// wraps ErrBadToken.
	ErrReplayed = fmt.Errorf("%w: already used", ErrBadToken)
)

// DefaultReplayWindow bounds how many accepted tokens are remembered.
const DefaultReplayWindow = 100_000

// State is the lifecycle position of a submission.
type State string

const (
	StatePristine   State = "pristine"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateRejected   State = "rejected"
)

// ValidationError carries a failed Result across the submit boundary.  It
// is a user error, not a system failure.
type ValidationError struct{ Result validation.Result }

func (ve *ValidationError) Error() string { return "form validation failed" }

// IsValidationError reports whether err came from a failed validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Submission is the outcome of a successful submit.
type Submission struct {
	ID          string            `json:"id"`
	FormID      string            `json:"form"`
	State       State             `json:"state"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Reset       validation.Record `json:"reset"`
}

// Submitter wires the registry, token source, and actions together.
type Submitter struct {
	Registry *Registry
	Tokens   *Tokens
	Actions  *Actions
	MinFill  time.Duration // zero disables the lower bound
	MaxFill  time.Duration // zero disables the upper bound

	// Used remembers accepted tokens.  Nil disables replay protection.
	Used *cache.LRU[string, struct{}]

	now func() time.Time
}

func (s *Submitter) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Submit runs the full submit sequence for formID.  info may be nil.
func (s *Submitter) Submit(ctx context.Context, formID, token string, rec validation.Record, info *requestinfo.RequestInfo) (*Submission, error) {
	f, err := s.Registry.Get(formID)
	if err != nil {
		return nil, err
	}

	if err := s.checkToken(token); err != nil {
		metrics.Submissions.WithLabelValues(formID, string(StateRejected)).Inc()
		return nil, err
	}

	res, err := Check(f, rec)
	if err != nil {
		metrics.Submissions.WithLabelValues(formID, string(StateRejected)).Inc()
		return nil, err
	}
	if !res.IsValid() {
		metrics.Submissions.WithLabelValues(formID, string(StateRejected)).Inc()
		return nil, &ValidationError{Result: res}
	}

	if s.Used != nil && token != "" && !s.Used.AddIfAbsent(token, struct{}{}) {
		metrics.Submissions.WithLabelValues(formID, string(StateRejected)).Inc()
		return nil, ErrReplayed
	}

	sub := &Submission{
		ID:          uuid.NewString(),
		FormID:      formID,
		State:       StateSubmitting,
		SubmittedAt: s.clock().UTC(),
	}

	if s.Actions != nil {
		s.Actions.Execute(ctx, f, sub, Sanitize(f, rec), info)
	}

	sub.State = StateSubmitted
	sub.Reset = f.Schema.Blank()
	metrics.Submissions.WithLabelValues(formID, string(StateSubmitted)).Inc()
	return sub, nil
}

// checkToken verifies the CSRF token and the time since it was issued.
func (s *Submitter) checkToken(token string) error {
	if s.Tokens == nil {
		return nil
	}
	if token == "" {
		return ErrBadToken
	}
	issued, err := s.Tokens.Verify(token)
	if err != nil {
		return err
	}

	elapsed := s.clock().Sub(issued)
	switch {
	case s.MinFill > 0 && elapsed < s.MinFill:
		return ErrTooFast
	case s.MaxFill > 0 && elapsed > s.MaxFill:
		return ErrExpired
	default:
		return nil
	}
}
