package form

import (
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/formcheck/internal/metrics"
	"github.com/yanizio/formcheck/internal/validation"
)

func TestRecordFromJSON(t *testing.T) {
	rec, err := RecordFromJSON(strings.NewReader(`{"username":"alice","email":null}`))
	require.NoError(t, err)
	assert.Equal(t, validation.Record{"username": "alice"}, rec)

	for _, bad := range []string{`{"username": 5}`, `[]`, `{`, ``} {
		_, err := RecordFromJSON(strings.NewReader(bad))
		assert.Error(t, err, bad)
	}
}

func TestRecordFromValues(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadDefaults())
	f, _ := reg.Get("basic")

	rec := RecordFromValues(f, url.Values{
		"username":   {"alice", "ignored"},
		"password":   {""},
		"csrf_token": {"tok"},
	})
	assert.Equal(t, validation.Record{"username": "alice", "password": ""}, rec)
}

func TestCheckCountsOutcomes(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadDefaults())
	f, _ := reg.Get("signup")

	invalid := func() float64 { return testutil.ToFloat64(metrics.Validations.WithLabelValues("signup", "invalid")) }
	malformed := func() float64 { return testutil.ToFloat64(metrics.Validations.WithLabelValues("signup", "malformed")) }
	matchFail := func() float64 {
		return testutil.ToFloat64(metrics.RuleFailures.WithLabelValues("signup", "confirmPassword", "match"))
	}
	i0, m0, r0 := invalid(), malformed(), matchFail()

	rec := goodSignup()
	rec["confirmPassword"] = "x"
	res, err := Check(f, rec)
	require.NoError(t, err)
	assert.False(t, res.IsValid())

	_, err = Check(f, validation.Record{})
	assert.ErrorIs(t, err, validation.ErrMissingField)

	assert.Equal(t, i0+1, invalid())
	assert.Equal(t, m0+1, malformed())
	assert.Equal(t, r0+1, matchFail())
}

func TestCheckField(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadDefaults())
	f, _ := reg.Get("signup")

	rec := goodSignup()
	rec["password"] = "Zyxwvutsrq9?"
	res, err := CheckField(f, rec, "password")
	require.NoError(t, err)
	assert.Equal(t, []string{"confirmPassword"}, res.Invalid())

	_, err = CheckField(f, rec, "nickname")
	assert.ErrorIs(t, err, validation.ErrUnknownField)
}

func TestSanitize(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadDefaults())
	f, _ := reg.Get("signup")

	clean := Sanitize(f, validation.Record{
		"username":        "  <b>alice</b><script>x()</script> ",
		"email":           " alice@example.com ",
		"password":        " <keep> ",
		"confirmPassword": " <keep> ",
	})
	assert.Equal(t, "alice", clean["username"])
	assert.Equal(t, "alice@example.com", clean["email"])
	assert.Equal(t, " <keep> ", clean["password"])
}

func TestSecretAndConfirmFields(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadDefaults())
	f, _ := reg.Get("signup")

	assert.Equal(t, map[string]bool{"password": true, "confirmPassword": true}, secretFields(f))
	assert.True(t, confirmOnly(f, "confirmPassword"))
	assert.False(t, confirmOnly(f, "password"))
	assert.False(t, confirmOnly(f, "nope"))
}
