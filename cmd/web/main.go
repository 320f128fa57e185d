// cmd/web/main.go
//
// formcheck – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (.env → conf/formcheck.yaml → FORMCHECK_ env),
//     resolving vault: references on the way.
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Open the optional GeoIP database and the optional MySQL pool, then
//     apply component migrations.
//
//  4. Load form definitions (embedded defaults + forms dir) and, when
//     enabled, watch the directory for edits.
//
//  5. Build the chi router:
//
//     • request ID, panic recovery, request log
//     • security headers, request metadata
//     • /metrics (Prometheus)
//     • every registered component at its prefix
//
//  6. Wrap with ForceHTTPS when configured and serve until SIGINT/SIGTERM,
//     then drain for up to 15 s.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/formcheck/internal/cache"
	"github.com/yanizio/formcheck/internal/component"
	"github.com/yanizio/formcheck/internal/config"
	"github.com/yanizio/formcheck/internal/database"
	"github.com/yanizio/formcheck/internal/form"
	"github.com/yanizio/formcheck/internal/logger"
	"github.com/yanizio/formcheck/internal/middleware"
	"github.com/yanizio/formcheck/internal/requestinfo"
	"github.com/yanizio/formcheck/internal/server"

	_ "github.com/yanizio/formcheck/components/forms"
	_ "github.com/yanizio/formcheck/components/health"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("formcheck: %v", err)
	}
}

func run(ctx context.Context) error {
	// Bootstrap console so config errors are visible before the file sink.
	boot, err := logger.Console("info")
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(boot.Desugar())

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(logger.Options{
		Dir:   cfg.Log.Dir,
		Level: cfg.Log.Level,
		Tee:   cfg.Log.Tee || runningInTTY(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 3.  Optional GeoIP and database ─────────────────────────────────
	//
	if cfg.Geo.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
			logOut.Warnw("geoip disabled", "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	deps := component.Deps{Log: logOut}

	if cfg.Database.Enabled() {
		dsn, err := cfg.Database.ResolvedDSN()
		if err != nil {
			return err
		}
		db, err := database.Open(dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db, component.Migrations()); err != nil {
			return err
		}
		logOut.Infow("database online")
		deps.DB = db
	}

	//
	// ── 4.  Forms ───────────────────────────────────────────────────────
	//
	reg := form.NewRegistry()
	if err := reg.Load(cfg.Forms.Dir); err != nil {
		return err
	}
	logOut.Infow("forms loaded", "dir", cfg.Forms.Dir, "count", reg.Len())

	var secret []byte
	if cfg.CSRF.Key != "" {
		if secret, err = form.DecodeSecret(cfg.CSRF.Key); err != nil {
			return err
		}
	} else {
		logOut.Warnw("csrf.key not set, tokens will not survive a restart")
	}
	tokens, err := form.NewTokens(secret, cfg.CSRF.MaxAge)
	if err != nil {
		return err
	}

	deps.Forms = reg
	deps.Tokens = tokens
	deps.Submitter = &form.Submitter{
		Registry: reg,
		Tokens:   tokens,
		Actions:  &form.Actions{DB: deps.DB, Log: logOut},
		MinFill:  cfg.Forms.MinFill,
		MaxFill:  cfg.Forms.MaxFill,
		Used:     cache.New[string, struct{}](form.DefaultReplayWindow),
	}

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLog(logOut))
	r.Use(middleware.Security)
	r.Use(requestinfo.Enrich(logOut))
	r.Handle("/metrics", promhttp.Handler())
	if err := component.Mount(r, deps); err != nil {
		return err
	}

	var root http.Handler = r
	if cfg.HTTP.ForceHTTPS {
		root = middleware.ForceHTTPS(root)
	}

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, root)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Forms.Watch {
		g.Go(func() error {
			if err := form.Watch(gctx, reg, cfg.Forms.Dir, logOut); err != nil {
				logOut.Warnw("form watch disabled", "err", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logOut.Infow("shutting down")
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}
