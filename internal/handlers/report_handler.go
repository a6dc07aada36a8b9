package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/realtime"
)

type ReportHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewReportHandler(db *gorm.DB, hub *realtime.Hub) *ReportHandler {
	return &ReportHandler{DB: db, Hub: hub}
}

type MediaItem struct {
	URL     string `json:"url"`
	Kind    string `json:"kind"` // photo, video
	Caption string `json:"caption,omitempty"`
}

type CreateReportReq struct {
	ProjectID          string          `json:"project_id"`
	Title              string          `json:"title"`
	ReportText         string          `json:"report_text"`
	Progress           decimal.Decimal `json:"progress"`
	Media              []MediaItem     `json:"media"`
	ExpectedCompletion *time.Time      `json:"expected_completion"`
}

// Create files a field report against the caller's active assignment.
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req CreateReportReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.Title) == "" {
		errs.Add("title", "Title is required")
	}
	if req.Progress.IsNegative() || req.Progress.GreaterThan(decimal.NewFromInt(100)) {
		errs.Add("progress", "Progress must be between 0 and 100")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var assignment models.Assignment
	if err := h.DB.
		Where("project_id = ? AND developer_id = ? AND status = ?", projectID, userUUID, models.AssignmentActive).
		First(&assignment).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "No active assignment on this project"})
	}

	var media datatypes.JSON
	if len(req.Media) > 0 {
		b, err := json.Marshal(req.Media)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid media payload"})
		}
		media = datatypes.JSON(b)
	}

	now := time.Now()
	report := models.Report{
		ReportCode:         models.GenerateReportCode(),
		ProjectID:          projectID,
		AssignmentID:       assignment.ID,
		CreatedByID:        userUUID,
		Title:              strings.TrimSpace(req.Title),
		ReportText:         req.ReportText,
		Status:             models.ReportPending,
		Progress:           req.Progress,
		Media:              media,
		ExpectedCompletion: req.ExpectedCompletion,
		SubmittedAt:        &now,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return tx.Model(&models.Project{}).
			Where("id = ?", projectID).
			Update("progress", req.Progress).Error
	})
	if err != nil {
		log.Println("Error creating report:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to create report"})
	}

	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err == nil {
		notif := models.Notification{
			UserID: project.ClientID,
			Kind:   models.NotificationProject,
			Title:  "New field report",
			Body:   "A new report was filed on project " + project.Name + ".",
		}
		if err := h.DB.Create(&notif).Error; err == nil {
			h.Hub.SendToUser(project.ClientID, fiber.Map{
				"type":         "notification",
				"notification": notif,
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": report})
}

// List returns reports on a project, visible to its client, its developer and
// admins.
func (h *ReportHandler) List(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	projectID, err := uuid.Parse(c.Params("projectId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}
	if !canSeeProject(caller, &project) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	var reports []models.Report
	if err := h.DB.
		Preload("CreatedBy").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		log.Println("Error fetching reports:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch reports"})
	}

	return c.JSON(fiber.Map{"success": true, "data": reports})
}

// Review marks a report reviewed. The project's client or an admin may do it.
func (h *ReportHandler) Review(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid report ID"})
	}

	var report models.Report
	if err := h.DB.Preload("Project").First(&report, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Report not found"})
	}

	if caller.Role != models.RoleAdmin && (report.Project == nil || report.Project.ClientID != caller.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	now := time.Now()
	res := h.DB.Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportPending).
		Updates(map[string]interface{}{
			"status":      models.ReportReviewed,
			"reviewed_at": now,
		})
	if res.Error != nil {
		log.Println("Error reviewing report:", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to review report"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Report already reviewed"})
	}

	report.Status = models.ReportReviewed
	report.ReviewedAt = &now

	h.Hub.SendToUser(report.CreatedByID, fiber.Map{
		"type":   "report_reviewed",
		"report": fiber.Map{"id": report.ID, "report_code": report.ReportCode},
	})

	return c.JSON(fiber.Map{"success": true, "data": report})
}
