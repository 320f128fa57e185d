// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web calls Init() on
// every component that implements Initializer, applies Migrations() when a
// database is configured, and then mounts Routes() at Prefix().  Prefixes
// must be unique.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/formcheck/internal/form"
)

// Deps carries the process-wide resources a component may need.  DB is nil
// when no database is configured.
type Deps struct {
	Forms     *form.Registry
	Tokens    *form.Tokens
	Submitter *form.Submitter
	DB        *sqlx.DB
	Log       *zap.SugaredLogger
}

// Initializer is optional.  If a Component implements it, cmd/web calls
// Init(deps) once before Routes().
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Migrations() may return nil if the component has no schema changes.
// Routes() returns a router mounted at Prefix(), e.g:
//
//	r := chi.NewRouter()
//	r.Get("/{id}", c.getForm)
//	return r
type Component interface {
	Name() string
	Prefix() string
	Routes() chi.Router
	Migrations() []string
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so mounting and
// migration order is stable.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component with deps and mounts its
// routes on r.
func Mount(r chi.Router, deps Deps) error {
	for _, c := range All() {
		if in, ok := c.(Initializer); ok {
			if err := in.Init(deps); err != nil {
				return err
			}
		}
		r.Mount(c.Prefix(), c.Routes())
	}
	return nil
}

// Migrations concatenates every component's migrations in name order.
func Migrations() []string {
	var out []string
	for _, c := range All() {
		out = append(out, c.Migrations()...)
	}
	return out
}
