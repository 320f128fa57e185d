package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/formcheck/internal/cache"
	"github.com/yanizio/formcheck/internal/metrics"
	"github.com/yanizio/formcheck/internal/validation"
)

func goodSignup() validation.Record {
	return validation.Record{
		"username":        "alice",
		"email":           "alice@example.com",
		"password":        "Abcdefghij1!",
		"confirmPassword": "Abcdefghij1!",
	}
}

type submitFixture struct {
	sub    *Submitter
	tokens *Tokens
	clock  time.Time
}

func newSubmitFixture(t *testing.T) *submitFixture {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.LoadDefaults())

	fx := &submitFixture{clock: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	fx.tokens = fixedTokens(t, fx.clock)
	fx.tokens.now = func() time.Time { return fx.clock }
	fx.sub = &Submitter{
		Registry: reg,
		Tokens:   fx.tokens,
		Actions:  &Actions{Log: zap.NewNop().Sugar()},
		MinFill:  2 * time.Second,
		MaxFill:  30 * time.Minute,
		Used:     cache.New[string, struct{}](16),
		now:      func() time.Time { return fx.clock },
	}
	return fx
}

// issue returns a token and advances the clock by elapsed.
func (fx *submitFixture) issue(t *testing.T, elapsed time.Duration) string {
	t.Helper()
	tok, err := fx.tokens.Issue()
	require.NoError(t, err)
	fx.clock = fx.clock.Add(elapsed)
	return tok
}

func TestSubmitSuccess(t *testing.T) {
	fx := newSubmitFixture(t)
	before := testutil.ToFloat64(metrics.Submissions.WithLabelValues("signup", string(StateSubmitted)))

	tok := fx.issue(t, 10*time.Second)
	sub, err := fx.sub.Submit(context.Background(), "signup", tok, goodSignup(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "signup", sub.FormID)
	assert.Equal(t, StateSubmitted, sub.State)
	assert.Equal(t, fx.clock, sub.SubmittedAt)
	assert.Equal(t, validation.Record{"username": "", "email": "", "password": "", "confirmPassword": ""}, sub.Reset)

	after := testutil.ToFloat64(metrics.Submissions.WithLabelValues("signup", string(StateSubmitted)))
	assert.Equal(t, before+1, after)
}

func TestSubmitRejections(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		token   func(string) string
		rec     validation.Record
		want    error
	}{
		{"missing token", 10 * time.Second, func(string) string { return "" }, goodSignup(), ErrBadToken},
		{"forged token", 10 * time.Second, func(string) string { return "forged" }, goodSignup(), ErrBadToken},
		{"too fast", time.Second, nil, goodSignup(), ErrTooFast},
		{"left open too long", 45 * time.Minute, nil, goodSignup(), ErrExpired},
		{"missing field", 10 * time.Second, nil, validation.Record{"username": "alice"}, validation.ErrMissingField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newSubmitFixture(t)
			tok := fx.issue(t, tc.elapsed)
			if tc.token != nil {
				tok = tc.token(tok)
			}
			_, err := fx.sub.Submit(context.Background(), "signup", tok, tc.rec, nil)
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, IsValidationError(err))
		})
	}
}

func TestSubmitValidationError(t *testing.T) {
	fx := newSubmitFixture(t)
	tok := fx.issue(t, 10*time.Second)

	rec := goodSignup()
	rec["confirmPassword"] = "different"
	_, err := fx.sub.Submit(context.Background(), "signup", tok, rec, nil)
	require.Error(t, err)
	require.True(t, IsValidationError(err))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"confirmPassword"}, ve.Result.Invalid())
}

func TestSubmitUnknownForm(t *testing.T) {
	fx := newSubmitFixture(t)
	_, err := fx.sub.Submit(context.Background(), "nope", "", goodSignup(), nil)
	assert.ErrorIs(t, err, ErrUnknownForm)
}

func TestSubmitWithoutTokens(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadDefaults())
	s := &Submitter{Registry: reg}

	sub, err := s.Submit(context.Background(), "signup", "", goodSignup(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, sub.State)
}

func TestSubmitTokenIsSingleUse(t *testing.T) {
	fx := newSubmitFixture(t)
	tok := fx.issue(t, 10*time.Second)

	// A rejected record does not consume the token.
	bad := goodSignup()
	bad["email"] = "nope"
	_, err := fx.sub.Submit(context.Background(), "signup", tok, bad, nil)
	require.True(t, IsValidationError(err))

	_, err = fx.sub.Submit(context.Background(), "signup", tok, goodSignup(), nil)
	require.NoError(t, err)

	_, err = fx.sub.Submit(context.Background(), "signup", tok, goodSignup(), nil)
	assert.ErrorIs(t, err, ErrReplayed)
	assert.ErrorIs(t, err, ErrBadToken)
}
