// components/health/health.go
//
// Liveness and readiness probes.
//
//   GET /healthz  always 200 while the process serves requests.
//   GET /readyz   200 when forms are loaded and, if configured, the
//                 database answers a ping; 503 otherwise.

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/formcheck/internal/component"
	"github.com/yanizio/formcheck/internal/form"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

// Component serves the probes.
type Component struct {
	forms *form.Registry
	db    *sqlx.DB
}

func (c *Component) Name() string         { return "health" }
func (c *Component) Prefix() string       { return "/" }
func (c *Component) Migrations() []string { return nil }

// Init keeps references to the registry and database.
func (c *Component) Init(d component.Deps) error {
	c.forms = d.Forms
	c.db = d.DB
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", c.healthz)
	r.Get("/readyz", c.readyz)
	return r
}

func init() { component.Register(&Component{}) }

type status struct {
	Status   string `json:"status"`
	Forms    int    `json:"forms"`
	Database string `json:"database,omitempty"`
}

func (c *Component) healthz(w http.ResponseWriter, _ *http.Request) {
	write(w, http.StatusOK, status{Status: "ok", Forms: c.formCount()})
}

func (c *Component) readyz(w http.ResponseWriter, r *http.Request) {
	st := status{Status: "ok", Forms: c.formCount()}
	code := http.StatusOK

	if st.Forms == 0 {
		st.Status, code = "no forms loaded", http.StatusServiceUnavailable
	}
	if c.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		st.Database = "ok"
		if err := c.db.PingContext(ctx); err != nil {
			st.Database = err.Error()
			st.Status, code = "database unavailable", http.StatusServiceUnavailable
		}
	}
	write(w, code, st)
}

func (c *Component) formCount() int {
	if c.forms == nil {
		return 0
	}
	return c.forms.Len()
}

func write(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
