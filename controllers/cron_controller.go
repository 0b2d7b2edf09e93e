package controller

import (
	"log"

	"callnexy/worker"

	"github.com/gofiber/fiber/v2"
)

// CronController owns the externally-triggered scheduler entry point. All
// the orchestration lives in the worker; this layer only translates one tick
// into one HTTP exchange.
type CronController struct {
	Worker *worker.ScheduleWorker
	Logger *log.Logger
}

func NewCronController(w *worker.ScheduleWorker, logger *log.Logger) *CronController {
	return &CronController{
		Worker: w,
		Logger: logger,
	}
}

// HandleTick runs one scheduler pass across all running campaigns. The
// response is always 200 with a best-effort report; per-campaign failures
// show up as result lines, never as an HTTP error.
func (cc *CronController) HandleTick(c *fiber.Ctx) error {
	report := cc.Worker.ProcessRunningCampaigns(c.Context())
	return c.JSON(report)
}
