package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/api/middleware"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/api/rest"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/api/websocket"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/config"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/guard"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/metrics"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/validate"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/repository"
)

const auditPruneInterval = time.Hour

// app is the assembled gateway: auth core, audit sinks and the HTTP handler.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	auditLog  *audit.Log
	auditRepo *repository.SQLiteRepository
	tokens    *auth.TokenRegistry
	handler   http.Handler
}

type appOption func(*appOptions)

type appOptions struct {
	bcryptCost int
}

// withBcryptCost lowers the hashing cost for tests.
func withBcryptCost(cost int) appOption {
	return func(o *appOptions) { o.bcryptCost = cost }
}

func newApp(cfg *config.Config, log *zap.Logger, opts ...appOption) (*app, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	a := &app{cfg: cfg, log: log}

	policy := rbac.Default()
	if cfg.PolicyPath != "" {
		raw, err := os.ReadFile(cfg.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		p, err := rbac.Load(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("load policy %s: %w", cfg.PolicyPath, err)
		}
		for _, w := range validate.PolicyWarnings(string(raw)) {
			log.Warn("Policy grant review", zap.String("path", cfg.PolicyPath), zap.String("warning", w))
		}
		policy = p
		log.Info("Policy loaded", zap.String("path", cfg.PolicyPath))
	}

	// Audit sinks
	ring := audit.NewRingSink(cfg.AuditBufferSize)
	sinks := []audit.Sink{ring}
	var lister audit.Lister = ring
	if cfg.AuditStdout || cfg.AuditLogPath != "" {
		zs, err := audit.NewZapSink(audit.FileConfig{
			Stdout:     cfg.AuditStdout,
			Path:       cfg.AuditLogPath,
			MaxSize:    cfg.AuditMaxSizeMB,
			MaxBackups: cfg.AuditMaxBackups,
			MaxAge:     cfg.AuditMaxAgeDays,
			Compress:   cfg.AuditCompress,
		})
		if err != nil {
			return nil, fmt.Errorf("audit file sink: %w", err)
		}
		sinks = append(sinks, zs)
	}
	if cfg.AuditDBPath != "" {
		repo, err := repository.NewSQLiteRepository(cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("audit database: %w", err)
		}
		if err := repo.Migrate(); err != nil {
			repo.Close()
			return nil, fmt.Errorf("audit database: %w", err)
		}
		a.auditRepo = repo
		sinks = append(sinks, repo)
		lister = repo
		log.Info("Audit database ready", zap.String("path", cfg.AuditDBPath))
	}
	hub := websocket.NewHub(context.Background(), log)
	go hub.Run()
	sinks = append(sinks, hub)
	a.auditLog = audit.NewLog(log, nil, sinks...)

	var credOpts []auth.CredentialOption
	if o.bcryptCost > 0 {
		credOpts = append(credOpts, auth.WithBcryptCost(o.bcryptCost))
	}
	creds, err := auth.NewCredentialStore(nil, cfg.Users(), credOpts...)
	if err != nil {
		a.auditLog.Close()
		return nil, err
	}
	tokens, err := auth.NewTokenRegistry(nil, creds, cfg.APITokens())
	if err != nil {
		a.auditLog.Close()
		return nil, err
	}
	a.tokens = tokens
	codec, err := auth.NewCookieCodec(cfg.SecretKey, nil)
	if err != nil {
		a.auditLog.Close()
		return nil, err
	}

	var upstream http.Handler
	if cfg.UpstreamURL != "" {
		upstream, err = rest.NewUpstreamProxy(cfg.UpstreamURL, cfg.UpstreamToken, log)
		if err != nil {
			a.auditLog.Close()
			return nil, err
		}
	} else {
		log.Warn("No upstream configured; device API calls will answer 502")
	}

	h := rest.NewHandler(rest.Deps{
		Authn:         auth.NewAuthenticator(creds, tokens, a.auditLog),
		Codec:         codec,
		Guard:         guard.New(policy, a.auditLog),
		Audit:         a.auditLog,
		AuditLog:      lister,
		Upstream:      upstream,
		AuditStream:   websocket.NewHandler(hub, cfg.AllowedOrigins),
		SiteName:      cfg.SiteName,
		SecureCookies: cfg.CookieSecure,
		LoginPerMin:   cfg.LoginRatePerMin,
		LoginBurst:    cfg.LoginRateBurst,
		Logger:        log,
	})

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		a.auditLog.Close()
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(
		middleware.RealIP(proxies),
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.StructuredLog(log),
		middleware.Tracing,
		middleware.SecureHeaders,
		middleware.MaxBodySize(cfg.MaxBodyBytes),
	)
	router.Handle("/metrics", middleware.MetricsAuth(cfg.MetricsAuthEnabled, tokens)(promhttp.Handler())).Methods(http.MethodGet)
	rest.SetupRoutes(router, h)

	if len(cfg.AllowedOrigins) > 0 {
		a.handler = middleware.CORS(cfg.AllowedOrigins, log)(router)
	} else {
		a.handler = router
	}
	return a, nil
}

// run serves HTTP and the background loops until ctx is cancelled, then shuts down gracefully.
func (a *app) run(ctx context.Context) error {
	timeout := time.Duration(a.cfg.RequestTimeoutSec) * time.Second
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.Port),
		Handler:           a.handler,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("Server listening", zap.Int("port", a.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		a.tokens.RunSweeper(gctx, time.Duration(a.cfg.SessionSweepIntervalSec)*time.Second, a.onSweep)
		return nil
	})
	if a.auditRepo != nil && a.cfg.AuditRetentionDays > 0 {
		g.Go(func() error {
			a.runAuditPrune(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (a *app) onSweep(removed int) {
	metrics.ActiveSessions.Set(float64(a.tokens.Count()))
	if removed == 0 {
		return
	}
	metrics.SessionsSweptTotal.Add(float64(removed))
	a.auditLog.Record(context.Background(), audit.NewEvent(audit.EventSessionsSwept).
		WithReason(strconv.Itoa(removed)+"_expired"))
}

func (a *app) runAuditPrune(ctx context.Context) {
	ticker := time.NewTicker(auditPruneInterval)
	defer ticker.Stop()
	for {
		a.pruneAudit(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *app) pruneAudit(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -a.cfg.AuditRetentionDays)
	n, err := a.auditRepo.Prune(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			a.log.Warn("Audit prune failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		a.log.Info("Audit events pruned", zap.Int64("deleted", n), zap.Time("before", cutoff))
	}
}

// close flushes and closes the audit sinks: the SQLite store and the stream hub included.
func (a *app) close() error {
	return a.auditLog.Close()
}
