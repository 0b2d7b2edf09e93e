package controller

import (
	"log"
	"time"

	"callnexy/models"
	"callnexy/utils"
	"callnexy/worker"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CampaignController is the operator surface for campaign lifecycle. The
// scheduler itself never goes through these handlers; pausing and resuming
// is strictly an external action.
type CampaignController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Location *time.Location
}

func NewCampaignController(db *gorm.DB, location *time.Location, logger *log.Logger) *CampaignController {
	return &CampaignController{
		DB:       db,
		Logger:   logger,
		Location: location,
	}
}

type createCampaignRequest struct {
	OwnerID         uint             `json:"owner_id" validate:"required"`
	Name            string           `json:"name" validate:"required,min=1,max=120"`
	DayPlans        []models.DayPlan `json:"day_plans" validate:"required,dive"`
	AssignedLeadIDs []uint           `json:"assigned_lead_ids"`
	PhoneNumberID   string           `json:"phone_number_id"`
	AccessToken     string           `json:"access_token"`
}

// CreateCampaign creates a campaign in scheduled state. Malformed journeys
// are rejected here, at load time, so the scheduler never has to fail
// mid-tick on a plan it cannot interpret.
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var req createCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	campaign := models.Campaign{
		OwnerID:         req.OwnerID,
		Name:            req.Name,
		Status:          models.CampaignStatusScheduled,
		DayPlans:        req.DayPlans,
		AssignedLeadIDs: req.AssignedLeadIDs,
		PhoneNumberID:   req.PhoneNumberID,
		AccessToken:     req.AccessToken,
	}

	if err := campaign.ValidateJourney(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		cc.Logger.Printf("Failed to create campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// GetCampaigns lists campaigns, optionally filtered by status or owner
func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	query := cc.DB.Model(&models.Campaign{}).Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if ownerID := c.Query("owner_id"); ownerID != "" {
		query = query.Where("owner_id = ?", utils.ParseUint(ownerID))
	}

	var campaigns []models.Campaign
	if err := query.Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaigns",
		})
	}

	return c.JSON(campaigns)
}

// GetCampaign returns a single campaign
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}
	return c.JSON(campaign)
}

// StartCampaign moves a scheduled campaign to running. Day 1 of the journey
// is the start date itself; the lead cohort freezes from this point on.
func (cc *CampaignController) StartCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	if campaign.Status != models.CampaignStatusScheduled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only scheduled campaigns can be started",
		})
	}
	if err := campaign.ValidateJourney(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if len(campaign.AssignedLeadIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign has no assigned leads",
		})
	}

	campaign.Status = models.CampaignStatusRunning
	campaign.StartedAt = utils.Pointer(time.Now().In(cc.Location))
	if err := cc.DB.Save(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start campaign",
		})
	}

	utils.LogEvent("campaign_started", map[string]interface{}{
		"campaign_id": campaign.ID,
		"leads":       len(campaign.AssignedLeadIDs),
	})

	return c.JSON(fiber.Map{
		"message":  "Campaign started successfully",
		"campaign": campaign,
	})
}

// PauseCampaign excludes a running campaign from scheduler processing
func (cc *CampaignController) PauseCampaign(c *fiber.Ctx) error {
	return cc.transition(c, models.CampaignStatusRunning, models.CampaignStatusPaused, "Campaign paused")
}

// ResumeCampaign returns a paused campaign to the scheduler's work set
func (cc *CampaignController) ResumeCampaign(c *fiber.Ctx) error {
	return cc.transition(c, models.CampaignStatusPaused, models.CampaignStatusRunning, "Campaign resumed")
}

func (cc *CampaignController) transition(c *fiber.Ctx, from, to, message string) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	if campaign.Status != from {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign is not " + from,
		})
	}

	if err := cc.DB.Model(&campaign).Update("status", to).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign status",
		})
	}

	return c.JSON(fiber.Map{"message": message})
}

// GetCampaignStats returns the ledger-derived view of a campaign: per
// action/status counts plus progress recomputed from scratch, which is how
// the cached counters on the row can always be audited.
func (cc *CampaignController) GetCampaignStats(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	type statRow struct {
		ActionType string `json:"action_type"`
		Status     string `json:"status"`
		Count      int64  `json:"count"`
	}
	var rows []statRow
	err := cc.DB.Model(&models.ActionRecord{}).
		Select("action_type, status, COUNT(*) as count").
		Where("campaign_id = ?", campaign.ID).
		Group("action_type, status").
		Scan(&rows).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to aggregate action records",
		})
	}

	day := campaign.CurrentDay
	if campaign.StartedAt != nil {
		day = worker.CampaignDay(*campaign.StartedAt, time.Now(), cc.Location)
		if day < campaign.CurrentDay {
			day = campaign.CurrentDay
		}
	}
	progress, err := worker.RecomputeProgress(cc.DB, campaign.ID, day)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to recompute progress",
		})
	}

	return c.JSON(fiber.Map{
		"campaign_id": campaign.ID,
		"status":      campaign.Status,
		"breakdown":   rows,
		"progress":    progress,
	})
}
