package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-admin-console/internal/domain/entity"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/mocks/memory"
	"github.com/target/mmk-admin-console/internal/testutil"
)

func newEmployeeStore(t *testing.T) (*testutil.FakeAPI, *EmployeeStore, *memory.Notifier) {
	t.Helper()
	api, c := newTestAPI(t)
	n := &memory.Notifier{}
	return api, NewCatalog(CatalogOptions{API: c, Notifier: n}).Employees, n
}

func TestEmployeeStore_Search(t *testing.T) {
	api, s, _ := newEmployeeStore(t)
	api.JSON("GET /employees", http.StatusOK, map[string]any{
		"data": []entity.Employee{{ID: 1, FirstName: "Ada", RoleID: 2}, {ID: 2, FirstName: "Alan", RoleID: 3}},
	})

	items, err := s.Search(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	q := api.Calls("GET /employees")[0].Query
	assert.Contains(t, q, "search=a")
	assert.Contains(t, q, "page=1")
	assert.Contains(t, q, "limit=10")

	byRole := s.ByRole(3)
	require.Len(t, byRole, 1)
	assert.Equal(t, "Alan", byRole[0].FirstName)
}

func TestEmployeeStore_ChangePassword(t *testing.T) {
	api, s, n := newEmployeeStore(t)
	api.JSON("PUT /employees/7/password", http.StatusOK, map[string]any{"success": true})
	ctx := context.Background()

	require.NoError(t, s.ChangePassword(ctx, 7, entity.PasswordChange{NewPassword: "n3w", CurrentPassword: "old"}))
	calls := api.Calls("PUT /employees/7/password")
	require.Len(t, calls, 1)
	var body map[string]string
	require.NoError(t, calls[0].DecodeBody(&body))
	assert.Equal(t, map[string]string{"NewPassword": "n3w", "CurrentPassword": "old"}, body)

	err := s.ChangePassword(ctx, 7, entity.PasswordChange{NewPassword: "  "})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "New password is required", s.Err())
	assert.Len(t, api.Calls("PUT /employees/7/password"), 1)

	api.JSON("PUT /employees/7/password", http.StatusBadRequest, map[string]string{"message": "Current password is wrong"})
	err = s.ChangePassword(ctx, 7, entity.PasswordChange{NewPassword: "x", CurrentPassword: "bad"})
	require.Error(t, err)
	assert.Equal(t, "Current password is wrong", s.Err())
	assert.NotEmpty(t, n.Notices())
}
