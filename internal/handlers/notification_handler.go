package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sitegrid/sitegrid_backend/internal/models"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	q := h.DB.Where("user_id = ?", userUUID).Order("created_at DESC")
	if c.QueryBool("unread", false) {
		q = q.Where("is_read = false")
	}

	var notifs []models.Notification
	if err := q.Limit(100).Find(&notifs).Error; err != nil {
		log.Println("Error fetching notifications:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch notifications"})
	}

	var unread int64
	h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", userUUID).
		Count(&unread)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    notifs,
		"meta":    fiber.Map{"unread": unread},
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid notification ID"})
	}

	res := h.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userUUID).
		Update("is_read", true)
	if res.Error != nil {
		log.Println("Error marking notification read:", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to mark notification read"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Notification not found"})
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", userUUID).
		Update("is_read", true).Error; err != nil {
		log.Println("Error marking notifications read:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to mark notifications read"})
	}

	return c.JSON(fiber.Map{"success": true})
}
