// components/forms/forms.go
//
// formcheck forms component – JSON API over the form registry.
//
// Routes (mounted at /api/forms)
//   GET  /                               list forms
//   GET  /{id}                           field metadata, blank record, token
//   POST /{id}/validate                  whole-record validation
//   POST /{id}/fields/{field}/validate   one field plus its dependents
//   POST /{id}/feedback                  live rule checklist for one value
//   POST /{id}/submit                    token check, validation, actions
//
// Status mapping
//   404  unknown form or field
//   400  undecodable body
//   422  missing field, or a submit that failed validation
//   403  bad, early, or expired token
//
//------------------------------------------------------------------------------

package forms

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/formcheck/internal/component"
	"github.com/yanizio/formcheck/internal/form"
	"github.com/yanizio/formcheck/internal/requestinfo"
	"github.com/yanizio/formcheck/internal/validation"
)

// TokenHeader carries the CSRF token on submit.
const TokenHeader = "X-CSRF-Token"

const maxBody = 1 << 20

// Compile-time assertions.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

// Component serves the forms API.
type Component struct {
	forms     *form.Registry
	tokens    *form.Tokens
	submitter *form.Submitter
	log       *zap.SugaredLogger
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "forms" }

// Prefix is where Routes are mounted.
func (c *Component) Prefix() string { return "/api/forms" }

// Migrations creates the table used by the store action.
func (c *Component) Migrations() []string {
	return []string{`
CREATE TABLE IF NOT EXISTS form_submission (
    id           CHAR(36)     NOT NULL,
    form_id      VARCHAR(128) NOT NULL,
    submitted_at DATETIME(6)  NOT NULL,
    data         JSON         NOT NULL,
    meta         JSON         NULL,
    PRIMARY KEY (id),
    KEY idx_form_submission_form (form_id, submitted_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`}
}

// Init wires the shared registry, token source, and submitter.
func (c *Component) Init(d component.Deps) error {
	if d.Forms == nil {
		return errors.New("forms component: registry is required")
	}
	c.forms = d.Forms
	c.tokens = d.Tokens
	c.submitter = d.Submitter
	c.log = d.Log
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	if c.submitter == nil {
		c.submitter = &form.Submitter{Registry: d.Forms, Tokens: d.Tokens}
	}
	return nil
}

// Routes builds the router mounted at Prefix().
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.list)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", c.describe)
		r.Post("/validate", c.validate)
		r.Post("/fields/{field}/validate", c.validateField)
		r.Post("/feedback", c.feedback)
		r.Post("/submit", c.submit)
	})
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

type summary struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Fields int    `json:"fields"`
}

func (c *Component) list(w http.ResponseWriter, _ *http.Request) {
	all := c.forms.List()
	out := make([]summary, 0, len(all))
	for _, f := range all {
		out = append(out, summary{ID: f.Def.ID, Title: f.Def.Title, Fields: len(f.Def.Fields)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *Component) describe(w http.ResponseWriter, r *http.Request) {
	f, ok := c.lookup(w, r)
	if !ok {
		return
	}
	var tok string
	if c.tokens != nil {
		var err error
		if tok, err = c.tokens.Issue(); err != nil {
			c.fail(w, r, err)
			return
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, form.Describe(f, tok))
}

func (c *Component) validate(w http.ResponseWriter, r *http.Request) {
	f, ok := c.lookup(w, r)
	if !ok {
		return
	}
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	res, err := form.Check(f, rec)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *Component) validateField(w http.ResponseWriter, r *http.Request) {
	f, ok := c.lookup(w, r)
	if !ok {
		return
	}
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	res, err := form.CheckField(f, rec, chi.URLParam(r, "field"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type feedbackRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (c *Component) feedback(w http.ResponseWriter, r *http.Request) {
	f, ok := c.lookup(w, r)
	if !ok {
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	fb, err := f.Schema.Feedback(req.Field, req.Value)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (c *Component) submit(w http.ResponseWriter, r *http.Request) {
	f, ok := c.lookup(w, r)
	if !ok {
		return
	}

	var (
		rec   validation.Record
		token = r.Header.Get(TokenHeader)
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "malformed body")
			return
		}
		rec = form.RecordFromValues(f, r.PostForm)
		if token == "" {
			token = r.PostForm.Get("csrf_token")
		}
	} else {
		if rec, ok = decodeRecord(w, r); !ok {
			return
		}
	}

	sub, err := c.submitter.Submit(r.Context(), f.Def.ID, token, rec, requestinfo.FromContext(r.Context()))
	if err != nil {
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusUnprocessableEntity, ve.Result)
			return
		}
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

// lookup resolves {id} or writes 404.
func (c *Component) lookup(w http.ResponseWriter, r *http.Request) (*form.Form, bool) {
	f, err := c.forms.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return f, true
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (validation.Record, bool) {
	rec, err := form.RecordFromJSON(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return nil, false
	}
	return rec, true
}

// fail maps domain errors to status codes.  Anything unrecognised is a 500
// and gets logged.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, form.ErrUnknownForm), errors.Is(err, validation.ErrUnknownField):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, validation.ErrMissingField):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, form.ErrBadToken), errors.Is(err, form.ErrTooFast), errors.Is(err, form.ErrExpired):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		c.log.Errorw("forms handler failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
