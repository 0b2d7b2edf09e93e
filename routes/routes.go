package routes

import (
	"log"
	"os"
	"time"

	"callnexy/config"
	controller "callnexy/controllers"
	"callnexy/middleware"
	"callnexy/utils"
	"callnexy/worker"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

// SetupRoutes wires the scheduler worker, its collaborator clients and all
// HTTP endpoints. The cron controller is returned so main can hand the same
// handler to the internal tick worker.
func SetupRoutes(app *fiber.App, db *gorm.DB) *controller.CronController {
	cronLogger := log.New(os.Stdout, "CRON: ", log.Ldate|log.Ltime|log.Lshortfile)
	campaignLogger := log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags)
	dispatchLogger := log.New(os.Stdout, "DISPATCH: ", log.LstdFlags)

	cfg := config.AppConfig

	caller := utils.NewCallClient(cfg.CallServiceURL, cfg.DispatchTimeout(), dispatchLogger)
	messenger := utils.NewWhatsAppClient(cfg.WhatsAppAPIURL, cfg.DispatchTimeout(), dispatchLogger)

	var lease *worker.CampaignLease
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		lease = worker.NewCampaignLease(client, 45*time.Second)
	}

	scheduleWorker := worker.NewScheduleWorker(db, caller, messenger, lease, worker.Options{
		Location:        cfg.Location(),
		CallCeiling:     cfg.CallDispatchCeiling,
		MessageCeiling:  cfg.MessageBatchCeiling,
		SendWindow:      cfg.SendWindowMinutes,
		DispatchTimeout: cfg.DispatchTimeout(),
	}, cronLogger)

	cronController := controller.NewCronController(scheduleWorker, cronLogger)
	campaignController := controller.NewCampaignController(db, cfg.Location(), campaignLogger)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Trigger endpoint, invoked by the external cron facility
	cron := app.Group("/api/cron", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	cron.Get("/tick", middleware.CronAuth(cfg.CronSecret), cronController.HandleTick)

	// Campaign admin routes
	api := app.Group("/api/v1", middleware.AdminRateLimiter(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	campaign := api.Group("/campaigns")
	campaign.Post("/", campaignController.CreateCampaign)
	campaign.Get("/", campaignController.GetCampaigns)
	campaign.Get("/:id", campaignController.GetCampaign)
	campaign.Post("/:id/start", campaignController.StartCampaign)
	campaign.Post("/:id/pause", campaignController.PauseCampaign)
	campaign.Post("/:id/resume", campaignController.ResumeCampaign)
	campaign.Get("/:id/stats", campaignController.GetCampaignStats)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("Routes initialized successfully")
	return cronController
}
