package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(roles ...string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(context.Background(), "u1", "", roles))
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		has      []string
		required []string
		allowed  bool
	}{
		{"matching role", []string{RoleCashier}, []string{RoleCashier}, true},
		{"one of several", []string{RoleNurse}, []string{RoleDoctor, RoleNurse}, true},
		{"admin passes", []string{RoleAdmin}, []string{RoleHMOOfficer}, true},
		{"wrong role", []string{RoleRecords}, []string{RoleCashier}, false},
		{"no roles", nil, []string{RoleCashier}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.required...)(okHandler)(contextWithRoles(tt.has...))
			if tt.allowed && err != nil {
				t.Errorf("expected access, got %v", err)
			}
			if !tt.allowed {
				expectStatus(t, err, http.StatusForbidden)
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleLabScientist) {
		t.Error("lab_scientist should be valid")
	}
	if ValidRole("janitor") {
		t.Error("janitor should not be valid")
	}
}
