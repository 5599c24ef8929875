// Command pipeline rebuilds the derived feature tables and predicts every prop
// listed for the day. It runs once or on a cron schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/app"
	"github.com/diamondline/props-api/internal/config"
	"github.com/diamondline/props-api/internal/logger"
	"github.com/diamondline/props-api/internal/models"
)

const jobTimeout = 30 * time.Minute

func main() {
	date := flag.String("date", "", "prediction date (YYYY-MM-DD); defaults to today in the configured timezone")
	flag.Parse()

	if err := run(*date); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dateFlag string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New("props-pipeline", cfg.Env)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("Failed to load timezone, falling back to UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	p := &pipeline{app: a, logger: log.Sugar()}

	if cfg.RunOnce || dateFlag != "" {
		day := today(loc)
		if dateFlag != "" {
			if day, err = models.ParseDate(dateFlag); err != nil {
				return err
			}
		}
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		return p.runDay(jobCtx, day)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		if err := p.runDay(jobCtx, today(loc)); err != nil {
			log.Error("Scheduled pipeline run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	c.Start()
	log.Info("Cron scheduler started", zap.String("schedule", cfg.Schedule), zap.String("timezone", loc.String()))

	<-ctx.Done()
	log.Info("Shutting down pipeline")
	<-c.Stop().Done()
	return nil
}

type pipeline struct {
	app    *app.App
	logger *zap.SugaredLogger
}

// runDay derives features from the full event store, then predicts the day.
func (p *pipeline) runDay(ctx context.Context, day time.Time) error {
	derived, err := p.app.Deriver.DeriveAll(ctx)
	if err != nil {
		return fmt.Errorf("derive: %w", err)
	}

	if err := p.app.Identity.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh roster: %w", err)
	}

	report, err := p.app.Batch.Run(ctx, day)
	if err != nil {
		return fmt.Errorf("predict %s: %w", day.Format(time.DateOnly), err)
	}

	if unresolved := p.app.Identity.Unresolved(); len(unresolved) > 0 {
		p.logger.Warnw("Props skipped for unresolved names", "count", len(unresolved), "names", unresolved)
	}
	p.logger.Infow("Pipeline run finished",
		"runId", derived.RunID,
		"events", derived.Events,
		"date", report.Date,
		"predicted", report.Predicted,
		"stale", report.Stale,
	)
	return nil
}

// today is the calendar date in loc, expressed as midnight UTC like every
// stored game date.
func today(loc *time.Location) time.Time {
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
