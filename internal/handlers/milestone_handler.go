package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sitegrid/sitegrid_backend/internal/access"
	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/realtime"
)

type MilestoneHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewMilestoneHandler(db *gorm.DB, hub *realtime.Hub) *MilestoneHandler {
	return &MilestoneHandler{DB: db, Hub: hub}
}

// canEditMilestones: admins always, developers only on their own assignment.
// Clients follow milestones read-only.
func canEditMilestones(caller access.Caller, p *models.Project) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDeveloper:
		return p.DeveloperID != nil && *p.DeveloperID == caller.ID
	}
	return false
}

func (h *MilestoneHandler) ListByProject(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	projectID, err := uuid.Parse(c.Params("projectId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	var p models.Project
	if err := h.DB.First(&p, "id = ?", projectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}
	if !canSeeProject(caller, &p) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	var milestones []models.Milestone
	if err := h.DB.
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&milestones).Error; err != nil {
		log.Println("Error fetching milestones:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch milestones"})
	}

	return c.JSON(fiber.Map{"success": true, "data": milestones})
}

type CreateMilestoneReq struct {
	ProjectID          string           `json:"project_id"`
	Name               string           `json:"name"`
	Budget             *decimal.Decimal `json:"budget"`
	ExpectedCompletion *time.Time       `json:"expected_completion"`
}

func (h *MilestoneHandler) Create(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req CreateMilestoneReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	errs := FieldErrors{}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		errs.Add("project_id", "A valid project ID is required")
	}
	name, err := models.ParseMilestoneName(req.Name)
	if err != nil {
		errs.Add("name", "Milestone name must be one of the known construction phases")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var p models.Project
	if err := h.DB.First(&p, "id = ?", projectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}
	if !canEditMilestones(caller, &p) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	m := models.Milestone{
		ProjectID:          projectID,
		Name:               name,
		Progress:           decimal.Zero,
		Status:             models.MilestonePending,
		Budget:             req.Budget,
		ExpectedCompletion: req.ExpectedCompletion,
	}
	if err := h.DB.Create(&m).Error; err != nil {
		log.Println("Error creating milestone:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to create milestone"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": m})
}

type UpdateMilestoneReq struct {
	Name               *string          `json:"name"`
	Progress           *decimal.Decimal `json:"progress"`
	Status             *string          `json:"status"`
	Budget             *decimal.Decimal `json:"budget"`
	ExpectedCompletion *time.Time       `json:"expected_completion"`
	DateStarted        *time.Time       `json:"date_started"`
	DateCompleted      *time.Time       `json:"date_completed"`
}

// Update patches the milestone through an explicit whitelist, the same way
// project updates work. Name and status only accept the known enums.
func (h *MilestoneHandler) Update(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid milestone ID"})
	}

	var m models.Milestone
	if err := h.DB.First(&m, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Milestone not found"})
	}
	var p models.Project
	if err := h.DB.First(&p, "id = ?", m.ProjectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}
	if !canEditMilestones(caller, &p) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	var req UpdateMilestoneReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	errs := FieldErrors{}
	updates := map[string]interface{}{}
	completedNow := false
	if req.Name != nil {
		name, err := models.ParseMilestoneName(*req.Name)
		if err != nil {
			errs.Add("name", "Milestone name must be one of the known construction phases")
		} else {
			updates["name"] = name
		}
	}
	if req.Status != nil {
		status, err := models.ParseMilestoneStatus(*req.Status)
		if err != nil {
			errs.Add("status", "Status must be pending, ongoing or completed")
		} else {
			updates["status"] = status
			completedNow = status == models.MilestoneCompleted && m.Status != models.MilestoneCompleted
		}
	}
	if req.Progress != nil {
		if req.Progress.IsNegative() || req.Progress.GreaterThan(decimal.NewFromInt(100)) {
			errs.Add("progress", "Progress must be between 0 and 100")
		} else {
			updates["progress"] = *req.Progress
		}
	}
	if req.Budget != nil {
		updates["budget"] = *req.Budget
	}
	if req.ExpectedCompletion != nil {
		updates["expected_completion"] = *req.ExpectedCompletion
	}
	if req.DateStarted != nil {
		updates["date_started"] = *req.DateStarted
	}
	if req.DateCompleted != nil {
		updates["date_completed"] = *req.DateCompleted
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}
	if len(updates) == 0 {
		return c.JSON(fiber.Map{"success": true, "data": m})
	}

	if err := h.DB.Model(&m).Updates(updates).Error; err != nil {
		log.Println("Error updating milestone:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to update milestone"})
	}

	if completedNow {
		notif := models.Notification{
			UserID: p.ClientID,
			Kind:   models.NotificationProject,
			Title:  "Milestone completed",
			Body:   "The " + string(m.Name) + " milestone on " + p.Name + " is complete.",
		}
		if err := h.DB.Create(&notif).Error; err == nil {
			h.Hub.SendToUser(p.ClientID, fiber.Map{
				"type":         "notification",
				"notification": notif,
			})
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": m})
}

func (h *MilestoneHandler) Delete(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid milestone ID"})
	}

	var m models.Milestone
	if err := h.DB.First(&m, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Milestone not found"})
	}
	var p models.Project
	if err := h.DB.First(&p, "id = ?", m.ProjectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}
	if !canEditMilestones(caller, &p) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	if err := h.DB.Delete(&m).Error; err != nil {
		log.Println("Error deleting milestone:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to delete milestone"})
	}

	return c.JSON(fiber.Map{"success": true})
}
