package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/payperplay/autoscaler/internal/adminapi"
	"github.com/payperplay/autoscaler/internal/notify"
	"github.com/payperplay/autoscaler/internal/orchestrator"
	"github.com/payperplay/autoscaler/internal/reconciler"
	"github.com/payperplay/autoscaler/internal/router"
	"github.com/payperplay/autoscaler/pkg/config"
	"github.com/payperplay/autoscaler/pkg/logger"
)

func main() {
	cfg := config.Load()

	level := parseLogLevel(cfg.LogLevel)
	logger.SetDefault(logger.NewLogger(level, os.Stdout, cfg.LogJSON))

	managerClient, err := orchestrator.New(cfg.ManagerProxyHost)
	if err != nil {
		logger.Fatal("failed to construct manager orchestrator client", err, nil)
	}

	newProxyClient := func(base string) (orchestrator.API, error) {
		return orchestrator.New(base)
	}

	rtr := router.New(cfg.ReadonlyProxyDNS, cfg.ReadonlyProxyPort, orchestrator.New)

	smtpCfg, err := notify.LoadSMTPConfig(cfg.SMTPConfigPath)
	if err != nil {
		logger.Error("failed to load smtp config, notifier disabled", err, nil)
		smtpCfg = notify.SMTPConfig{Enabled: false}
	}
	notifier := notify.New(smtpCfg, notify.NewSMTPMailer(smtpCfg))

	rc := reconciler.New(reconciler.Config{
		LabelPrefix:           cfg.LabelPrefix,
		DefaultMinReplicas:    cfg.DefaultMinReplicas,
		DefaultMaxReplicas:    cfg.DefaultMaxReplicas,
		DefaultCooldown:       cfg.DefaultCooldown,
		BelowMinAlertCooldown: cfg.BelowMinAlertCooldown,
		PollInterval:          cfg.PollInterval,
		StartupProxyWait:      cfg.StartupProxyWait,
	}, managerClient, newProxyClient, rtr, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flushStop := make(chan struct{})
	go notifier.RunFlushLoop(flushStop)
	defer close(flushStop)

	engine := gin.New()
	engine.Use(gin.Recovery())
	adminapi.NewHandler(notifier, smtpCfg.Enabled).Register(engine)
	go func() {
		if err := engine.Run(":" + cfg.AdminAPIPort); err != nil {
			logger.Error("admin api server exited", err, nil)
		}
	}()

	if err := rc.WaitForReady(ctx); err != nil {
		logger.Error("startup readiness check failed", err, nil)
		notifier.SendErrorNow(notify.Event{Action: notify.ActionStartup, Reason: err.Error(), Kind: notify.KindError}, smtpCfg.ToDefault)
		os.Exit(1)
	}
	logger.Info("proxies ready, entering reconcile loop", nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received", nil)
		cancel()
	}()

	rc.Run(ctx)
}

func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.DEBUG
	case "warn":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}
