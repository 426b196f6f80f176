package services

import (
	"sort"

	"github.com/collabflow/backend/internal/models"
)

// ActiveUserIDs lists the distinct users connected to room, ascending.
func (h *Hub) ActiveUserIDs(room string) []uint {
	users := h.ActiveUsers(room)
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

// ActiveUsers lists the distinct users connected to room, ordered by id.
func (h *Hub) ActiveUsers(room string) []*models.User {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uint]*models.User)
	for _, c := range h.rooms[room] {
		if _, ok := seen[c.UserID]; !ok {
			seen[c.UserID] = c.User
		}
	}

	users := make([]*models.User, 0, len(seen))
	for _, u := range seen {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// UserPresent reports whether userID still has a connection in room.
func (h *Hub) UserPresent(room string, userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[room] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
