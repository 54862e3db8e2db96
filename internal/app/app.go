// Package app wires the daemon together and supervises its background
// tasks.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dockwatch/internal/config"
	"dockwatch/internal/docker"
	"dockwatch/internal/events"
	"dockwatch/internal/monitor"
	"dockwatch/internal/notify"
	"dockwatch/internal/store"
	"dockwatch/internal/web"
)

// restartDelay throttles daemon restarts after a panic or unexpected exit.
const restartDelay = 5 * time.Second

type App struct {
	cfg config.Config
	log *slog.Logger

	repo       *store.Repository
	docker     *docker.Client
	monitor    *monitor.Monitor
	translator *events.Translator

	httpSrv *http.Server
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	sqldb, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	repo := store.NewRepository(sqldb)
	dc := docker.NewClient(cfg.DockerSocket)

	dispatcher := notify.NewDispatcher(repo, cfg.Overrides, logger.With("module", "notify"))
	alerter := monitor.NewAlerter(repo, dispatcher, logger.With("module", "alerts"))
	cooldowns := monitor.NewCooldowns(monitor.CooldownWindow)

	app := &App{
		cfg:        cfg,
		log:        logger,
		repo:       repo,
		docker:     dc,
		monitor:    monitor.New(repo, dc, alerter, cooldowns, logger.With("module", "monitor")),
		translator: events.New(dc, alerter, logger.With("module", "events")),
	}
	srv := web.NewServer(repo, dc, alerter, logger.With("module", "web"))
	app.httpSrv = &http.Server{Addr: cfg.Addr, Handler: srv.Routes()}
	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("http server failed", "err", err)
		}
	}()

	go a.supervise(ctx, "monitor", a.monitor.Run)
	go a.supervise(ctx, "events", a.translator.Run)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpSrv.Shutdown(shutdownCtx)
	return a.repo.DB().Close()
}

// supervise keeps a process-lifetime daemon alive: a panic or an early
// return is logged and the daemon restarted after a short delay instead of
// letting the process degrade silently.
func (a *App) supervise(ctx context.Context, name string, run func(context.Context)) {
	for ctx.Err() == nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.log.Error("daemon panicked", "daemon", name, "panic", r)
				}
			}()
			run(ctx)
		}()
		if ctx.Err() != nil {
			return
		}
		a.log.Warn("daemon exited, restarting", "daemon", name)
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}
