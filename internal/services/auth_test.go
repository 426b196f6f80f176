package services

import (
	"net/http"
	"testing"

	"github.com/collabflow/backend/internal/config"
	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/internal/utils"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	utils.SetJWTSecret("test-secret")
	return NewAuthService(setupTestDB(t), &config.JWTConfig{Secret: "test-secret", ExpireHour: 1})
}

func TestAuthSignup(t *testing.T) {
	svc := newAuthService(t)

	resp, err := svc.Signup(&SignupRequest{Name: " Olive ", Email: "Olive@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if resp.User.Email != "olive@example.com" {
		t.Errorf("Email = %q, expected normalized", resp.User.Email)
	}
	if resp.User.Name != "Olive" {
		t.Errorf("Name = %q", resp.User.Name)
	}
	if resp.User.Role != models.RoleMember {
		t.Errorf("Role = %q, expected member default", resp.User.Role)
	}
	if resp.User.Password == "secret1" {
		t.Error("password must be stored hashed")
	}

	claims, err := utils.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != resp.User.ID || claims.Role != models.RoleMember {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestAuthSignup_Rejections(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Signup(&SignupRequest{Name: "Olive", Email: "olive@example.com", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"duplicate email", SignupRequest{Name: "Other", Email: "OLIVE@example.com", Password: "secret1"}},
		{"admin role", SignupRequest{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: models.RoleAdmin}},
		{"unknown role", SignupRequest{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: "boss"}},
		{"markup name", SignupRequest{Name: "<b></b>", Email: "eve@example.com", Password: "secret1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(&tt.req)
			expectStatus(t, err, http.StatusBadRequest)
		})
	}
}

func TestAuthLogin(t *testing.T) {
	svc := newAuthService(t)
	signup, err := svc.Signup(&SignupRequest{Name: "Pat", Email: "pat@example.com", Password: "secret1", Role: models.RolePM})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Login(&LoginRequest{Email: " PAT@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.User.ID != signup.User.ID || resp.User.Role != models.RolePM {
		t.Errorf("unexpected user %+v", resp.User)
	}

	_, err = svc.Login(&LoginRequest{Email: "pat@example.com", Password: "wrong"})
	expectStatus(t, err, http.StatusUnauthorized)

	_, err = svc.Login(&LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestAuthCreateAdminIfNotExists(t *testing.T) {
	svc := newAuthService(t)

	if err := svc.CreateAdminIfNotExists(&config.AdminConfig{}); err != nil {
		t.Fatalf("empty config should be a no-op, got %v", err)
	}

	cfg := &config.AdminConfig{Email: "Admin@Example.com", Password: "changeme"}
	for i := 0; i < 2; i++ {
		if err := svc.CreateAdminIfNotExists(cfg); err != nil {
			t.Fatalf("CreateAdminIfNotExists() error = %v", err)
		}
	}

	var admins []models.User
	svc.db.Where("role = ?", models.RoleAdmin).Find(&admins)
	if len(admins) != 1 || admins[0].Email != "admin@example.com" || admins[0].Name != "Administrator" {
		t.Errorf("unexpected admins %+v", admins)
	}

	resp, err := svc.Login(&LoginRequest{Email: "admin@example.com", Password: "changeme"})
	if err != nil {
		t.Fatalf("admin login error = %v", err)
	}
	if resp.User.Role != models.RoleAdmin {
		t.Errorf("Role = %q", resp.User.Role)
	}
}

func TestAuthGetUserByID(t *testing.T) {
	svc := newAuthService(t)
	signup, _ := svc.Signup(&SignupRequest{Name: "Olive", Email: "olive@example.com", Password: "secret1"})

	user, err := svc.GetUserByID(signup.User.ID)
	if err != nil || user.Email != "olive@example.com" {
		t.Errorf("GetUserByID() = %+v, %v", user, err)
	}
	if _, err := svc.GetUserByID(9999); err == nil {
		t.Error("expected an error for an unknown id")
	}
}
