package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/realtime"
)

type ChatHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewChatHandler(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *ChatHandler {
	return &ChatHandler{DB: db, Hub: hub, RDB: rdb}
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Type           string    `json:"type"`
	Text           string    `json:"text"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMessageResponse(msg *models.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID.String(),
		ConversationID: msg.ConversationID.String(),
		SenderID:       msg.SenderID.String(),
		Type:           msg.Type,
		Text:           msg.Text,
		IsRead:         msg.IsRead,
		CreatedAt:      msg.CreatedAt,
	}
}

type ConversationOut struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	ClientID    string    `json:"client_id"`
	DeveloperID string    `json:"developer_id"`
	ProjectName string    `json:"project_name,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	UnreadCount int64     `json:"unread_count"`

	LastMessage *MessageResponse `json:"last_message,omitempty"`
}

// GetConversations returns the caller's project conversations, most recently
// active first.
func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var convs []models.Conversation
	if err := h.DB.
		Preload("Project").
		Where("client_id = ? OR developer_id = ?", userUUID, userUUID).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {
		log.Println("Error fetching conversations:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch conversations"})
	}

	out := make([]ConversationOut, 0, len(convs))
	for _, conv := range convs {
		var unreadCount int64
		h.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id != ? AND is_read = false", conv.ID, userUUID).
			Count(&unreadCount)

		var last models.Message
		var lastPtr *MessageResponse
		if err := h.DB.
			Where("conversation_id = ?", conv.ID).
			Order("created_at DESC").
			Limit(1).
			First(&last).Error; err == nil {
			resp := toMessageResponse(&last)
			lastPtr = &resp
		}

		o := ConversationOut{
			ID:          conv.ID.String(),
			ProjectID:   conv.ProjectID.String(),
			ClientID:    conv.ClientID.String(),
			DeveloperID: conv.DeveloperID.String(),
			UpdatedAt:   conv.LastMessageAt,
			UnreadCount: unreadCount,
			LastMessage: lastPtr,
		}
		if conv.Project != nil {
			o.ProjectName = conv.Project.Name
		}
		out = append(out, o)
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

// GetUnreadTotal counts unread messages across all the caller's conversations.
func (h *ChatHandler) GetUnreadTotal(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var count int64
	err = h.DB.Model(&models.Message{}).
		Joins("JOIN conversations ON messages.conversation_id = conversations.id").
		Where("(conversations.client_id = ? OR conversations.developer_id = ?) AND messages.sender_id != ? AND messages.is_read = false", userUUID, userUUID, userUUID).
		Count(&count).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to count unread messages"})
	}

	return c.JSON(fiber.Map{"success": true, "data": count})
}

func (h *ChatHandler) memberConversation(c *fiber.Ctx, userUUID uuid.UUID) (*models.Conversation, error) {
	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid conversation ID"})
	}

	var conv models.Conversation
	if err := h.DB.First(&conv, "id = ?", convUUID).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Conversation not found"})
	}

	if conv.ClientID != userUUID && conv.DeveloperID != userUUID {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}
	return &conv, nil
}

// GetMessages returns a conversation's messages oldest-first and marks the
// other side's messages read.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	conv, errResp := h.memberConversation(c, userUUID)
	if conv == nil {
		return errResp
	}

	var messages []models.Message
	if err := h.DB.
		Where("conversation_id = ?", conv.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		log.Println("Error fetching messages:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch messages"})
	}

	if err := h.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = false", conv.ID, userUUID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		log.Println("Error marking messages as read:", err)
	}

	responses := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, toMessageResponse(&messages[i]))
	}

	return c.JSON(fiber.Map{"success": true, "data": responses})
}

// MarkAsRead marks the other side's messages in a conversation as read.
func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	conv, errResp := h.memberConversation(c, userUUID)
	if conv == nil {
		return errResp
	}

	if err := h.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = false", conv.ID, userUUID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		log.Println("Error marking messages as read:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to mark messages as read"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// SendMessage posts a message, bumps the conversation and fans it out over the
// hub plus the cross-instance Redis channel.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	conv, errResp := h.memberConversation(c, userUUID)
	if conv == nil {
		return errResp
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Text is required"})
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       userUUID,
		Text:           req.Text,
		IsRead:         false,
	}

	if err := h.DB.Create(&msg).Error; err != nil {
		log.Println("Error creating message:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to send message"})
	}

	_ = h.DB.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Update("last_message_at", msg.CreatedAt).Error

	msgResp := toMessageResponse(&msg)

	h.Hub.SendToConversation(conv.ClientID, conv.DeveloperID, fiber.Map{
		"type":    "new_message",
		"message": msgResp,
	})

	recipientID := conv.ClientID
	if userUUID == conv.ClientID {
		recipientID = conv.DeveloperID
	}

	notif := map[string]interface{}{
		"type":            "chat_message",
		"conversation_id": conv.ID.String(),
		"sender_id":       userUUID.String(),
		"text":            req.Text,
	}
	payload, _ := json.Marshal(notif)
	h.RDB.Publish(context.Background(), "notifications:"+recipientID.String(), payload)

	return c.JSON(fiber.Map{"success": true, "data": msgResp})
}

// WebSocketHandler registers the connection on the hub and pumps hub payloads
// to the socket until the client drops.
func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	userID := c.Query("user_id")
	if userID == "" {
		log.Println("WebSocket: user_id parameter missing")
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		log.Println("WebSocket: invalid user_id:", userID, "error:", err)
		c.Close()
		return
	}

	log.Printf("WebSocket: user %s connected\n", userID)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected\n", userID)
	}()

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			log.Printf("WebSocket read error for user %s: %v\n", userID, err)
			break
		}

		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
