package worker

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// TickWorker is the built-in fallback trigger for deployments without an
// external cron facility. It drives the same fiber handler the external
// trigger hits, through a synthesized request context, so both paths share
// one code path end to end.
type TickWorker struct {
	app      *fiber.App
	handler  fiber.Handler
	interval time.Duration
	logger   *log.Logger
}

func NewTickWorker(app *fiber.App, handler fiber.Handler, interval time.Duration, logger *log.Logger) *TickWorker {
	return &TickWorker{
		app:      app,
		handler:  handler,
		interval: interval,
		logger:   logger,
	}
}

func (tw *TickWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(5 * time.Second)

	tw.logger.Println("Internal tick worker started")

	ticker := time.NewTicker(tw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			tw.logger.Println("Internal tick worker shutting down...")
			return
		case <-ticker.C:
			tw.runOnce()
		}
	}
}

func (tw *TickWorker) runOnce() {
	fctx := tw.app.AcquireCtx(&fasthttp.RequestCtx{})
	defer tw.app.ReleaseCtx(fctx)

	if err := tw.handler(fctx); err != nil {
		tw.logger.Printf("Internal tick failed: %v", err)
	}
}
