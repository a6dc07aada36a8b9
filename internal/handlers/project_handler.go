package handlers

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sitegrid/sitegrid_backend/internal/access"
	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/realtime"
)

type ProjectHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewProjectHandler(db *gorm.DB, hub *realtime.Hub) *ProjectHandler {
	return &ProjectHandler{DB: db, Hub: hub}
}

type CreateProjectReq struct {
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	TypeOfConstruction string     `json:"type_of_construction"`
	City               string     `json:"city"`
	Location           string     `json:"location"`
	CoverImageURL      string     `json:"cover_image_url"`
	StartDate          *time.Time `json:"start_date"`
	DueDate            *time.Time `json:"due_date"`
	Note               string     `json:"note"`
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req CreateProjectReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.Name) == "" {
		errs.Add("name", "Project name is required")
	}
	if strings.TrimSpace(req.Location) == "" {
		errs.Add("location", "Location is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	p := models.Project{
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		TypeOfConstruction: req.TypeOfConstruction,
		City:               req.City,
		Location:           req.Location,
		Status:             models.ProjectPendingReview,
		ClientID:           userUUID,
		CoverImageURL:      req.CoverImageURL,
		StartDate:          req.StartDate,
		DueDate:            req.DueDate,
		Note:               req.Note,
	}

	if err := h.DB.Create(&p).Error; err != nil {
		log.Println("Error creating project:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to create project"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": p})
}

// List returns projects visible to the caller: clients see their own,
// developers see projects they are assigned to, admins see everything.
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	q := h.DB.Preload("Client").Preload("Developer").Order("created_at DESC")
	switch caller.Role {
	case models.RoleClient:
		q = q.Where("client_id = ?", caller.ID)
	case models.RoleDeveloper:
		q = q.Where("developer_id = ?", caller.ID)
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}

	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		log.Println("Error fetching projects:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch projects"})
	}

	return c.JSON(fiber.Map{"success": true, "data": projects})
}

func canSeeProject(caller access.Caller, p *models.Project) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return p.ClientID == caller.ID
	case models.RoleDeveloper:
		return p.DeveloperID != nil && *p.DeveloperID == caller.ID
	}
	return false
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	var p models.Project
	if err := h.DB.
		Preload("Client").
		Preload("Developer").
		Preload("EscrowTransfers").
		Preload("EscrowWithdrawals").
		First(&p, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}

	if !canSeeProject(caller, &p) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	return c.JSON(fiber.Map{"success": true, "data": p})
}

type UpdateProjectReq struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	City          *string    `json:"city"`
	Location      *string    `json:"location"`
	CoverImageURL *string    `json:"cover_image_url"`
	StartDate     *time.Time `json:"start_date"`
	DueDate       *time.Time `json:"due_date"`
	Note          *string    `json:"note"`
}

// Update patches the client-editable project fields. The updatable set is an
// explicit whitelist; status, ownership and acceptance fields only move
// through their dedicated endpoints.
func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	var p models.Project
	if err := h.DB.First(&p, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}

	if caller.Role != models.RoleAdmin && p.ClientID != caller.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	var req UpdateProjectReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.CoverImageURL != nil {
		updates["cover_image_url"] = *req.CoverImageURL
	}
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}

	if len(updates) == 0 {
		return c.JSON(fiber.Map{"success": true, "data": p})
	}

	if err := h.DB.Model(&p).Updates(updates).Error; err != nil {
		log.Println("Error updating project:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to update project"})
	}

	return c.JSON(fiber.Map{"success": true, "data": p})
}

// Approve moves a project from pending_review to active. Admin only by route.
func (h *ProjectHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, models.ProjectActive, "Your project was approved and is now active.")
}

// Reject moves a project from pending_review to rejected. Admin only by route.
func (h *ProjectHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, models.ProjectRejected, "Your project was rejected.")
}

func (h *ProjectHandler) review(c *fiber.Ctx, to models.ProjectStatus, notice string) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	var p models.Project
	if err := h.DB.First(&p, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}

	// conditional update so a raced double-review cannot flip a decided project
	res := h.DB.Model(&models.Project{}).
		Where("id = ? AND status = ?", id, models.ProjectPendingReview).
		Update("status", to)
	if res.Error != nil {
		log.Println("Error reviewing project:", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to review project"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Project already reviewed"})
	}
	p.Status = to

	notif := models.Notification{
		UserID: p.ClientID,
		Kind:   models.NotificationProject,
		Title:  "Project " + string(to),
		Body:   notice,
	}
	if err := h.DB.Create(&notif).Error; err == nil {
		h.Hub.SendToUser(p.ClientID, fiber.Map{
			"type":         "notification",
			"notification": notif,
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": p})
}

type AssignDeveloperReq struct {
	DeveloperID string `json:"developer_id"`
}

// AssignDeveloper puts a developer on a project, opens the assignment record
// and the project conversation. Admin only by route.
func (h *ProjectHandler) AssignDeveloper(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	var req AssignDeveloperReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	devID, err := uuid.Parse(req.DeveloperID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid developer ID"})
	}

	var dev models.User
	if err := h.DB.First(&dev, "id = ? AND role = ?", devID, models.RoleDeveloper).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Developer not found"})
	}

	var p models.Project
	if err := h.DB.First(&p, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}
	if p.Status != models.ProjectActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Project is not active"})
	}

	assignment := models.Assignment{
		ProjectID:   p.ID,
		DeveloperID: devID,
		Status:      models.AssignmentActive,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Project{}).
			Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"developer_id":         devID,
				"developer_acceptance": models.AcceptancePending,
			}).Error; err != nil {
			return err
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}

		var conv models.Conversation
		err := tx.Where("project_id = ?", p.ID).First(&conv).Error
		if err == gorm.ErrRecordNotFound {
			conv = models.Conversation{
				ProjectID:     p.ID,
				ClientID:      p.ClientID,
				DeveloperID:   devID,
				LastMessageAt: time.Now(),
			}
			return tx.Create(&conv).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&conv).Update("developer_id", devID).Error
	})
	if err != nil {
		log.Println("Error assigning developer:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to assign developer"})
	}

	notif := models.Notification{
		UserID: devID,
		Kind:   models.NotificationProject,
		Title:  "New project assignment",
		Body:   "You were assigned to project " + p.Name + ".",
	}
	if err := h.DB.Create(&notif).Error; err == nil {
		h.Hub.SendToUser(devID, fiber.Map{
			"type":         "notification",
			"notification": notif,
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": assignment})
}

type AcceptanceReq struct {
	Reason string `json:"reason"`
}

// AcceptAssignment is the developer's confirmation of an assignment.
func (h *ProjectHandler) AcceptAssignment(c *fiber.Ctx) error {
	return h.acceptance(c, true)
}

// RejectAssignment lets the developer decline; the project goes back to having
// no developer so an admin can reassign.
func (h *ProjectHandler) RejectAssignment(c *fiber.Ctx) error {
	return h.acceptance(c, false)
}

func (h *ProjectHandler) acceptance(c *fiber.Ctx, accept bool) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	var p models.Project
	if err := h.DB.First(&p, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	}
	if p.DeveloperID == nil || *p.DeveloperID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}
	if p.DeveloperAcceptance != models.AcceptancePending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Assignment already decided"})
	}

	now := time.Now()
	updates := map[string]interface{}{}
	if accept {
		updates["developer_acceptance"] = models.AcceptanceAccepted
		updates["developer_accepted_at"] = now
	} else {
		var req AcceptanceReq
		c.BodyParser(&req)
		updates["developer_acceptance"] = models.AcceptanceRejected
		updates["developer_rejected_at"] = now
		updates["developer_rejection_reason"] = req.Reason
		updates["developer_id"] = nil
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).
			Where("id = ? AND developer_acceptance = ?", id, models.AcceptancePending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if !accept {
			return tx.Model(&models.Assignment{}).
				Where("project_id = ? AND developer_id = ? AND status = ?", id, userUUID, models.AssignmentActive).
				Update("status", models.AssignmentRevoked).Error
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Assignment already decided"})
	}
	if err != nil {
		log.Println("Error deciding assignment:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to decide assignment"})
	}

	title := "Assignment accepted"
	body := "The developer accepted your project assignment."
	if !accept {
		title = "Assignment rejected"
		body = "The developer declined your project assignment."
	}
	notif := models.Notification{
		UserID: p.ClientID,
		Kind:   models.NotificationProject,
		Title:  title,
		Body:   body,
	}
	if err := h.DB.Create(&notif).Error; err == nil {
		h.Hub.SendToUser(p.ClientID, fiber.Map{
			"type":         "notification",
			"notification": notif,
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
