// internal/form/actions.go
//
// formcheck – Forms subsystem: post-submit actions.
//
// Context
//   A FormDef may list actions.  Execute runs them after a submission passes
//   validation: log, store, and webhook.  Actions run concurrently and each
//   failure is logged and counted but never returned, keeping the user flow
//   uninterrupted.
//
//   Secrets never leave in clear.  Fields that only repeat another field
//   (confirmPassword) are dropped everywhere.  Password fields are redacted
//   in logs, bcrypt-hashed for storage, and omitted from webhooks.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/formcheck/internal/metrics"
	"github.com/yanizio/formcheck/internal/requestinfo"
)

const (
	defaultTable          = "form_submission"
	defaultWebhookTimeout = 5 * time.Second
	maxParallelActions    = 4
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Actions executes post-submit actions.  DB may be nil, in which case store
// actions are skipped with a warning.
type Actions struct {
	DB         *sqlx.DB
	HTTP       *http.Client
	Log        *zap.SugaredLogger
	BcryptCost int
}

// Execute performs every action declared on f and waits for them.
func (a *Actions) Execute(ctx context.Context, f *Form, sub *Submission, clean map[string]string, info *requestinfo.RequestInfo) {
	if len(f.Def.Actions) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(maxParallelActions)

	for _, ac := range f.Def.Actions {
		ac := ac
		g.Go(func() error {
			var err error
			switch ac.Type {
			case "log":
				err = a.runLog(f, sub, clean)
			case "store":
				err = a.runStore(ctx, f, sub, ac.Params, clean, info)
			case "webhook":
				err = a.runWebhook(ctx, f, sub, ac.Params, clean)
			default:
				a.Log.Warnw("form action warning", "form", f.Def.ID, "action", ac.Type, "warning", "unsupported action")
				return nil
			}
			if err != nil {
				metrics.ActionErrors.WithLabelValues(ac.Type).Inc()
				a.Log.Errorw("form action failed", "form", f.Def.ID, "action", ac.Type, "submission", sub.ID, "error", err.Error())
			}
			return nil
		})
	}
	_ = g.Wait()
}

// -----------------------------------------------------------------------------
// Log action
// -----------------------------------------------------------------------------

func (a *Actions) runLog(f *Form, sub *Submission, clean map[string]string) error {
	secret := secretFields(f)
	kv := []any{"form", f.Def.ID, "submission", sub.ID}
	for _, fd := range f.Def.Fields {
		if confirmOnly(f, fd.Name) {
			continue
		}
		val := clean[fd.Name]
		if secret[fd.Name] {
			val = "[redacted]"
		}
		kv = append(kv, fd.Name, val)
	}
	a.Log.Infow("form submitted", kv...)
	return nil
}

// -----------------------------------------------------------------------------
// Store action
// -----------------------------------------------------------------------------

func (a *Actions) runStore(ctx context.Context, f *Form, sub *Submission, p map[string]any, clean map[string]string, info *requestinfo.RequestInfo) error {
	if a.DB == nil {
		return fmt.Errorf("store action: no database configured")
	}

	table, _ := p["table"].(string)
	if table == "" {
		table = defaultTable
	}
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("store action: invalid table name %q", table)
	}

	data, err := a.storedValues(f, clean)
	if err != nil {
		return err
	}
	dj, err := json.Marshal(data)
	if err != nil {
		return err
	}
	mj, err := json.Marshal(info.Summary())
	if err != nil {
		return err
	}

	_, err = a.DB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, form_id, submitted_at, data, meta) VALUES (?, ?, ?, ?, ?)`, table),
		sub.ID,
		f.Def.ID,
		sub.SubmittedAt,
		dj,
		mj,
	)
	return err
}

// storedValues hashes password fields and drops confirmation fields.
func (a *Actions) storedValues(f *Form, clean map[string]string) (map[string]string, error) {
	cost := a.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	secret := secretFields(f)

	out := make(map[string]string, len(clean))
	for _, fd := range f.Def.Fields {
		if confirmOnly(f, fd.Name) {
			continue
		}
		val := clean[fd.Name]
		if secret[fd.Name] {
			h, err := bcrypt.GenerateFromPassword([]byte(val), cost)
			if err != nil {
				return nil, fmt.Errorf("hash %s: %w", fd.Name, err)
			}
			val = string(h)
		}
		out[fd.Name] = val
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Webhook action
// -----------------------------------------------------------------------------

func (a *Actions) runWebhook(ctx context.Context, f *Form, sub *Submission, p map[string]any, clean map[string]string) error {
	url, ok := p["url"].(string)
	if !ok || url == "" {
		return fmt.Errorf("webhook action requires 'url'")
	}
	method, _ := p["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	secret := secretFields(f)
	values := make(map[string]string, len(clean))
	for k, v := range clean {
		if secret[k] || confirmOnly(f, k) {
			continue
		}
		values[k] = v
	}
	payload, err := json.Marshal(map[string]any{
		"id":           sub.ID,
		"form":         f.Def.ID,
		"submitted_at": sub.SubmittedAt,
		"values":       values,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultWebhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p {
		if strings.HasPrefix(k, "header.") {
			req.Header.Set(strings.TrimPrefix(k, "header."), fmt.Sprint(v))
		}
	}

	client := a.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned %s", url, resp.Status)
	}
	return nil
}
