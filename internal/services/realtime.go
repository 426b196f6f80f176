package services

import (
	"encoding/json"
	"net/http"

	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/pkg/logger"
	"github.com/collabflow/backend/pkg/response"
	"gorm.io/gorm"
)

// inboundMessage is a client frame: {"event": name, "data": payload}.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomPayload struct {
	ProjectID FlexID `json:"projectId"`
}

type moveHintPayload struct {
	TaskID    FlexID `json:"taskId"`
	NewStatus string `json:"newStatus"`
	ProjectID FlexID `json:"projectId"`
}

type editingPayload struct {
	TaskID    FlexID `json:"taskId"`
	ProjectID FlexID `json:"projectId"`
}

// RealtimeService implements the client side protocol of realtime connections:
// room membership, presence announcements and ephemeral hints.
type RealtimeService struct {
	db  *gorm.DB
	hub *Hub
}

func NewRealtimeService(db *gorm.DB, hub *Hub) *RealtimeService {
	return &RealtimeService{db: db, hub: hub}
}

// Connect registers an authenticated user's connection.
func (s *RealtimeService) Connect(user *models.User) *Client {
	c := s.hub.Register(user)
	logger.Info().Uint("user_id", user.ID).Str("conn_id", c.ID).Msg("realtime client connected")
	return c
}

// HandleMessage dispatches one client frame.
func (s *RealtimeService) HandleMessage(c *Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError(c, "Invalid message")
		return
	}

	switch msg.Event {
	case "project:join":
		if id, ok := parseRoomPayload(msg.Data); ok {
			s.Join(c, id)
			return
		}
	case "project:leave":
		if id, ok := parseRoomPayload(msg.Data); ok {
			s.Leave(c, id)
			return
		}
	case "task:move":
		var p moveHintPayload
		if err := json.Unmarshal(msg.Data, &p); err == nil && p.ProjectID != 0 {
			s.MoveHint(c, uint(p.ProjectID), uint(p.TaskID), p.NewStatus)
			return
		}
	case "task:editing", "task:stop-editing":
		var p editingPayload
		if err := json.Unmarshal(msg.Data, &p); err == nil && p.ProjectID != 0 {
			s.Editing(c, uint(p.ProjectID), uint(p.TaskID), msg.Event == "task:editing")
			return
		}
	default:
		s.sendError(c, "Unknown event")
		return
	}
	s.sendError(c, "Invalid payload")
}

// parseRoomPayload accepts a bare project id or {"projectId": id}.
func parseRoomPayload(data json.RawMessage) (uint, bool) {
	var id FlexID
	if err := json.Unmarshal(data, &id); err == nil && id != 0 {
		return uint(id), true
	}
	var p roomPayload
	if err := json.Unmarshal(data, &p); err == nil && p.ProjectID != 0 {
		return uint(p.ProjectID), true
	}
	return 0, false
}

// Join subscribes the connection to a project room after a membership check.
func (s *RealtimeService) Join(c *Client, projectID uint) {
	if _, err := loadProjectForMember(s.db, projectID, c.UserID); err != nil {
		s.sendGuardError(c, err)
		return
	}

	room := ProjectRoom(projectID)
	if s.hub.Join(c, room) {
		s.hub.BroadcastExcept(room, c.ID, "user:joined", map[string]interface{}{
			"userId": c.UserID,
			"user":   c.User,
		})
	}
	s.hub.SendTo(c, "active:users", map[string]interface{}{
		"users": s.hub.ActiveUsers(room),
	})

	logger.Debug().Uint("user_id", c.UserID).Uint("project_id", projectID).Msg("joined project room")
}

// Leave unsubscribes the connection from a project room.
func (s *RealtimeService) Leave(c *Client, projectID uint) {
	room := ProjectRoom(projectID)
	if !s.hub.Leave(c, room) {
		return
	}
	s.announceLeft(room, c.UserID)
}

// Disconnect drops the connection from every room it joined.
func (s *RealtimeService) Disconnect(c *Client) {
	for _, room := range s.hub.Unregister(c) {
		s.announceLeft(room, c.UserID)
	}
	logger.Info().Uint("user_id", c.UserID).Str("conn_id", c.ID).Msg("realtime client disconnected")
}

// announceLeft reports a departure once the user has no connection left in room.
func (s *RealtimeService) announceLeft(room string, userID uint) {
	if s.hub.UserPresent(room, userID) {
		return
	}
	s.hub.Broadcast(room, "user:left", map[string]interface{}{"userId": userID})
}

// MoveHint relays an optimistic drag to the rest of the room. Nothing is persisted.
func (s *RealtimeService) MoveHint(c *Client, projectID, taskID uint, newStatus string) {
	if _, err := loadProjectForMember(s.db, projectID, c.UserID); err != nil {
		s.sendGuardError(c, err)
		return
	}
	if !models.IsValidTaskStatus(newStatus) {
		s.sendError(c, "Invalid status")
		return
	}
	s.hub.BroadcastExcept(ProjectRoom(projectID), c.ID, "task:moved", map[string]interface{}{
		"taskId":    taskID,
		"newStatus": newStatus,
		"movedBy":   c.UserID,
	})
}

// Editing relays editing indicators. The connection must have joined the room.
func (s *RealtimeService) Editing(c *Client, projectID, taskID uint, editing bool) {
	room := ProjectRoom(projectID)
	if !s.hub.InRoom(c, room) {
		s.sendError(c, "Access denied")
		return
	}

	if editing {
		s.hub.BroadcastExcept(room, c.ID, "user:editing", map[string]interface{}{
			"taskId":   taskID,
			"userId":   c.UserID,
			"userName": c.User.Name,
		})
		return
	}
	s.hub.BroadcastExcept(room, c.ID, "user:stopped-editing", map[string]interface{}{
		"taskId": taskID,
		"userId": c.UserID,
	})
}

func (s *RealtimeService) sendGuardError(c *Client, err error) {
	switch response.StatusOf(err) {
	case http.StatusNotFound:
		s.sendError(c, "Project not found")
	case http.StatusForbidden:
		s.sendError(c, "Access denied")
	default:
		logger.Error().Err(err).Uint("user_id", c.UserID).Msg("realtime membership check failed")
		s.sendError(c, "Server error")
	}
}

func (s *RealtimeService) sendError(c *Client, message string) {
	s.hub.SendTo(c, "error", map[string]interface{}{"message": message})
}
