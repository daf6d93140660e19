package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"galopen/internal/api"
	"galopen/internal/autostart"
	"galopen/internal/locale"
	"galopen/internal/notification"
	"galopen/internal/opener"
	"galopen/internal/scheduler"
	"galopen/internal/store"
	"galopen/internal/tray"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the auto-join daemon and its local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logrus.WithField("component", "main")

		browser := opener.New()
		gateway, err := newGateway(cfg, browser)
		if err != nil {
			return err
		}
		defer gateway.Close()

		appStore, gormDB, err := openStore(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			defer sqlDB.Close()
		}
		log.Info("data store initialized")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool := notification.NewWorkerPool(cfg.Notify.WorkerPoolSize, cfg.Notify.QueueSize,
			newSenders(ctx, cfg.Notify, appStore)...)
		pool.Start(ctx)

		var autostartMgr api.Autostart
		if exe, err := os.Executable(); err != nil {
			log.WithError(err).Warn("start at login unavailable")
		} else {
			autostartMgr = autostart.New(exe)
		}

		defaults := defaultSettings(cfg)
		syncer := scheduler.NewSyncer(gateway, store.NewSnapshotStore())
		indicator := tray.NewIndicator()
		lang := locale.Resolve(cfg.Locale)

		sched := scheduler.New(scheduler.Config{
			Tick:         cfg.Scheduler.Tick,
			Poll:         cfg.Scheduler.Poll,
			GraceMinutes: cfg.Scheduler.GraceMinutes,
			PreOpenDelay: cfg.Scheduler.PreOpenDelay,
			Defaults:     defaults,
			Locale:       lang,
		}, scheduler.Deps{
			Permission: gateway,
			Syncer:     syncer,
			Settings:   appStore,
			Notifier:   pool,
			Opener:     browser,
			Tray:       indicator,
			Joins:      appStore,
		})

		router := api.NewRouter(api.Deps{
			Calendar:  gateway,
			Syncer:    syncer,
			Store:     appStore,
			Tray:      indicator,
			Autostart: autostartMgr,
			WebPush:   webpushOptions(cfg.Notify.Push),
			Defaults:  defaults,
		}, cfg.Server)
		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		osSignal := make(chan os.Signal, 1)
		signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(osSignal)

		var g run.Group

		g.Add(func() error {
			select {
			case sig := <-osSignal:
				log.WithField("signal", sig.String()).Info("shutdown signal received, stopping services")
			case <-ctx.Done():
			}
			return nil
		}, func(error) {
			cancel()
		})

		g.Add(func() error {
			sched.Run(ctx)
			return nil
		}, func(error) {
			cancel()
		})

		g.Add(func() error {
			log.WithFields(logrus.Fields{"addr": cfg.Server.Addr, "locale": lang}).Info("HTTP server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("HTTP server shutdown")
			}
		})

		if err := g.Run(); err != nil {
			log.WithError(err).Error("daemon stopped")
			return err
		}
		log.Info("daemon gracefully stopped")
		return nil
	},
}
