// internal/form/registry.go
//
// formcheck – Forms subsystem: in-memory registry.
//
// Context
//   The registry maps form IDs to compiled Forms.  Built-in definitions are
//   embedded in the binary; an optional directory of "*.yaml" files may add
//   forms or override built-ins with the same ID.  Handlers, the CLI, and the
//   submitter fetch forms from here by ID.
//
// Workflow
//   •  Load builds a complete set (defaults, then directory) and swaps it in
//      atomically, so readers never see a half-loaded registry.
//   •  A failed Load leaves the previous set untouched.
//
//------------------------------------------------------------------------------

package form

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yanizio/formcheck/internal/metrics"
)

//go:embed defs/*.yaml
var builtinDefs embed.FS

// ErrUnknownForm is returned for IDs with no registered definition.
var ErrUnknownForm = errors.New("unknown form")

// Registry holds compiled forms by ID.  Safe for concurrent use; the zero
// value is an empty registry.
type Registry struct {
	mu    sync.RWMutex
	forms map[string]*Form
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{forms: make(map[string]*Form)}
}

// Get returns the form registered under id.
func (r *Registry) Get(id string) (*Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, id)
	}
	return f, nil
}

// List returns every form sorted by ID.
func (r *Registry) List() []*Form {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Form, 0, len(r.forms))
	for _, f := range r.forms {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Def.ID < out[j].Def.ID })
	return out
}

// Len reports how many forms are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}

// Replace registers or replaces a single form.
func (r *Registry) Replace(f *Form) {
	r.mu.Lock()
	if r.forms == nil {
		r.forms = make(map[string]*Form)
	}
	r.forms[f.Def.ID] = f
	n := len(r.forms)
	r.mu.Unlock()
	metrics.FormsLoaded.Set(float64(n))
}

// LoadDefaults resets the registry to the embedded definitions.
func (r *Registry) LoadDefaults() error { return r.Load("") }

// Load rebuilds the registry from the embedded defaults plus every "*.yaml"
// under dir.  An empty dir loads the defaults only.  A missing dir is not an
// error.
func (r *Registry) Load(dir string) error {
	next := make(map[string]*Form)

	if err := loadFS(builtinDefs, "defs", next); err != nil {
		return fmt.Errorf("built-in forms: %w", err)
	}

	if dir != "" {
		err := loadFS(os.DirFS(dir), ".", next)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	r.mu.Lock()
	r.forms = next
	r.mu.Unlock()
	metrics.FormsLoaded.Set(float64(len(next)))
	return nil
}

// loadFS walks fsys from root and compiles every YAML file into dst.  Later
// files with the same ID replace earlier ones.
func loadFS(fsys fs.FS, root string, dst map[string]*Form) error {
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isYAML(d.Name()) {
			return nil
		}

		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", path, err)
		}
		fd, err := ParseFormDef(raw, path)
		if err != nil {
			return err
		}
		f, err := Compile(fd)
		if err != nil {
			return err
		}
		dst[fd.ID] = f
		return nil
	})
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
