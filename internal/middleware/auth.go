package middleware

import (
	"errors"
	"strings"

	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/internal/utils"
	"github.com/collabflow/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
	ContextUser   = "user"
)

// UserFinder loads the account a token refers to.
type UserFinder interface {
	GetUserByID(id uint) (*models.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate validates token and loads its user. Token and lookup misses
// are reported as a 401 *response.AppError; store failures pass through.
func Authenticate(finder UserFinder, token string) (*models.User, error) {
	if token == "" {
		return nil, response.NewUnauthorized("Not authorized to access this route")
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, response.NewUnauthorized("Token expired")
		}
		return nil, response.NewUnauthorized("Invalid token")
	}

	user, err := finder.GetUserByID(claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && user == nil) {
		return nil, response.NewUnauthorized("User not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AuthRequired is a middleware that checks for a valid JWT token and loads
// the current user. The role in context is the stored one, not the token's.
func AuthRequired(finder UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := BearerToken(c.GetHeader("Authorization"))

		user, err := Authenticate(finder, token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextRole, user.Role)
		c.Set(ContextUser, user)

		c.Next()
	}
}

// RolesRequired allows the request through only for the given global roles.
func RolesRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			response.Abort(c, response.NewUnauthorized("Not authenticated"))
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Abort(c, response.NewForbidden("User role "+role.(string)+" is not authorized to access this route"))
	}
}

// AdminRequired is a middleware that checks for admin role
func AdminRequired() gin.HandlerFunc {
	return RolesRequired(models.RoleAdmin)
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextEmail); exists {
		return email.(string)
	}
	return ""
}

// GetRole gets the current user's global role from context
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(ContextRole); exists {
		return role.(string)
	}
	return ""
}

// GetUser returns the user loaded by AuthRequired, or nil.
func GetUser(c *gin.Context) *models.User {
	if u, exists := c.Get(ContextUser); exists {
		return u.(*models.User)
	}
	return nil
}
