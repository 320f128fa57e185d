// internal/form/watch.go
//
// formcheck – Forms subsystem: definition hot reload.
//
// Context
//   Operators edit form YAML in place.  Watch observes the definitions
//   directory with fsnotify and calls Registry.Load on every write, create,
//   remove, or rename of a YAML file.  A definition that fails to parse is
//   logged and the previous set stays live.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/yanizio/formcheck/internal/metrics"
)

// Watch blocks until ctx is done, reloading reg whenever a YAML file under
// dir changes.  The directory must exist.
func Watch(ctx context.Context, reg *Registry, dir string, log *zap.SugaredLogger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Infow("watching form definitions", "dir", dir)

	const mask = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&mask == 0 || !isYAML(filepath.Base(ev.Name)) {
				continue
			}
			if err := reg.Load(dir); err != nil {
				metrics.RegistryReloads.WithLabelValues("error").Inc()
				log.Errorw("form reload failed, keeping previous set", "file", ev.Name, "err", err)
				continue
			}
			metrics.RegistryReloads.WithLabelValues("ok").Inc()
			log.Infow("form definitions reloaded", "file", ev.Name, "op", ev.Op.String(), "forms", reg.Len())

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnw("form watcher error", "err", err)
		}
	}
}
