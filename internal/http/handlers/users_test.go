package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medicareprima/clinic-api/internal/domain/user"
	"github.com/medicareprima/clinic-api/internal/http/handlers"
)

type fakeUserAdmin struct {
	record    user.User
	missing   bool
	setActive []bool
}

func (f *fakeUserAdmin) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.missing {
		return user.User{}, user.ErrNotFound
	}
	return f.record, nil
}

func (f *fakeUserAdmin) SetActive(ctx context.Context, id string, active bool) error {
	f.setActive = append(f.setActive, active)
	f.record.IsActive = active
	return nil
}

type fakeSessionRevoker struct {
	revokedUsers []string
}

func (f *fakeSessionRevoker) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return fakeTx{}, nil
}

func (f *fakeSessionRevoker) RevokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error {
	f.revokedUsers = append(f.revokedUsers, userID)
	return nil
}

func TestSetUserActive(t *testing.T) {
	target := user.User{ID: uuid.NewString(), Email: "budi@example.com", IsActive: true, Role: user.RolePatient}

	tests := []struct {
		name        string
		body        string
		missing     bool
		wantStatus  int
		wantRevoked int
	}{
		{name: "deactivate revokes sessions", body: `{"isActive":false}`, wantStatus: http.StatusOK, wantRevoked: 1},
		{name: "reactivate leaves sessions alone", body: `{"isActive":true}`, wantStatus: http.StatusOK, wantRevoked: 0},
		{name: "missing flag", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "unknown user", body: `{"isActive":false}`, missing: true, wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := &fakeUserAdmin{record: target, missing: tc.missing}
			sessions := &fakeSessionRevoker{}

			h := handlers.NewUsersHandler(users, sessions, testLogger())

			r := gin.New()
			r.PUT("/admin/users/:id/active", h.SetActive)

			w := performJSON(r, http.MethodPut, "/admin/users/"+target.ID+"/active", tc.body, nil)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", w.Code, tc.wantStatus, w.Body.String())
			}

			if len(sessions.revokedUsers) != tc.wantRevoked {
				t.Fatalf("revoked = %d, want %d", len(sessions.revokedUsers), tc.wantRevoked)
			}
		})
	}
}
