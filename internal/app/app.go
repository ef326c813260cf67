package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pulse/internal/alerts"
	"pulse/internal/backup"
	"pulse/internal/collector"
	"pulse/internal/config"
	"pulse/internal/db"
	"pulse/internal/logs"
	"pulse/internal/metrics"
	"pulse/internal/notifier"
	"pulse/internal/web"
)

const shutdownTimeout = 10 * time.Second

// App is the explicit process context: every component is constructed once
// here and injected, no package-level state.
type App struct {
	cfg config.Config
	log *slog.Logger

	db       *db.Repository
	pipeline *collector.Service
	backup   *backup.Service
	logEx    *logs.Exporter
	operator *notifier.Operator

	httpSrv *http.Server
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	sqldb, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(sqldb); err != nil {
		return nil, err
	}
	repo := db.NewRepository(sqldb)

	mailer := notifier.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	telegram := notifier.NewTelegram(cfg.TelegramBotToken)
	operator := notifier.NewOperator(mailer, cfg.OperatorEmails, logger.With("module", "operator"))

	engine := alerts.NewEngine(repo, mailer, telegram, operator, logger.With("module", "alerts"))
	host := collector.NewHostCollector(cfg.MetricReadTimeout, logger.With("module", "collector"))
	pipeline := collector.NewService(repo, host, engine, cfg.RetentionWindow, logger.With("module", "collector"))

	w := web.NewServer(repo, telegram, cfg.RetentionWindow, logger.With("module", "web"))

	app := &App{
		cfg:      cfg,
		log:      logger,
		db:       repo,
		pipeline: pipeline,
		backup:   backup.NewService(repo, cfg.BackupDir, cfg.BackupKeep, logger.With("module", "backup")),
		logEx:    logs.NewExporter(cfg.LogPath, mailer, cfg.OperatorEmails, logger.With("module", "logs")),
		operator: operator,
	}
	app.httpSrv = &http.Server{Addr: cfg.Addr, Handler: w.Routes()}
	return app, nil
}

// Run drives the periodic jobs from a single goroutine, so two ticks can
// never overlap; a slow run simply defers the next one.
func (a *App) Run(ctx context.Context) error {
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("http server failed", "err", err)
		}
	}()

	sampleTicker := time.NewTicker(a.cfg.SampleInterval)
	backupTicker := time.NewTicker(a.cfg.BackupInterval)
	logTicker := time.NewTicker(a.cfg.LogExportInterval)
	defer sampleTicker.Stop()
	defer backupTicker.Stop()
	defer logTicker.Stop()

	// Immediate first run
	a.runJob(ctx, "sample", a.pipeline.Tick)

	for {
		select {
		case <-ctx.Done():
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.httpSrv.Shutdown(shutCtx); err != nil {
				a.log.Warn("http shutdown", "err", err)
			}
			cancel()
			return a.db.DB().Close()
		case <-sampleTicker.C:
			a.runJob(ctx, "sample", a.pipeline.Tick)
		case <-backupTicker.C:
			a.runJob(ctx, "backup", a.backup.Run)
		case <-logTicker.C:
			a.runJob(ctx, "log_export", a.logEx.Run)
		}
	}
}

// runJob isolates one scheduled run: a panic is logged and escalated, never
// fatal to the loop.
func (a *App) runJob(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("job panicked", "job", name, "panic", r)
			metrics.JobFailures.WithLabelValues(name).Inc()
			a.operator.Report("job "+name+" panicked", fmt.Sprint(r))
		}
	}()
	fn(ctx)
}
