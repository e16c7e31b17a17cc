package controllers

import (
	"context"

	"server/src/config"
	"server/src/scheduler"
	"server/src/services"
	"server/src/utils"

	"github.com/sirupsen/logrus"
)

// Controller owns the reconciliation sweeps: one at startup when configured,
// then periodic ones on the cron schedule.
type Controller struct {
	Reconciler services.ReconcilerServiceI
	Logger     *logrus.Logger

	sweepTask *scheduler.ScheduledTask
}

func NewController(reconciler services.ReconcilerServiceI, logger *logrus.Logger) *Controller {
	return &Controller{Reconciler: reconciler, Logger: logger}
}

func (c *Controller) Start(cfg *config.Config) error {
	ctx := utils.WithLogger(context.Background(), c.Logger)

	if cfg.Reconciler.RepairOnStart {
		if err := c.Reconciler.RepairAll(ctx); err != nil {
			c.Logger.WithError(err).Error("startup balance repair sweep failed")
		}
	}

	if cfg.Reconciler.CronSpec == "" {
		return nil
	}
	task, err := scheduler.NewScheduledTask(cfg.Reconciler.CronSpec, c.Logger, func() {
		if err := c.Reconciler.RepairAll(ctx); err != nil {
			c.Logger.WithError(err).Error("scheduled balance repair sweep failed")
		}
	})
	if err != nil {
		return err
	}
	c.sweepTask = task
	return nil
}

func (c *Controller) Stop() {
	if c.sweepTask != nil {
		c.sweepTask.Cancel()
	}
}
