package service

import (
	"context"
	"strings"

	"github.com/target/mmk-admin-console/internal/domain/entity"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
)

// EmployeeStore adds search and password management to the employees collection.
type EmployeeStore struct {
	*EntityStore[entity.Employee]
}

// Search loads the first page of employees matching query, keeping the
// current page size.
func (s *EmployeeStore) Search(ctx context.Context, query string) ([]entity.Employee, error) {
	return s.List(ctx, entity.ListParams{
		Page:    entity.DefaultPage,
		Limit:   s.Pagination().Limit,
		Filters: map[string]string{"search": query},
	})
}

// ChangePassword sets a new password for employee id.
func (s *EmployeeStore) ChangePassword(ctx context.Context, id int64, req entity.PasswordChange) error {
	s.clearErr()
	if strings.TrimSpace(req.NewPassword) == "" {
		return s.fail(ctx, apperrors.ValidationField("NewPassword", "New password is required"), "Failed to change employee password")
	}
	if err := s.api.Put(ctx, s.itemPath(id)+"/password", req, nil); err != nil {
		return s.fail(ctx, err, "Failed to change employee password")
	}
	return nil
}

// ByRole returns the loaded employees holding roleID.
func (s *EmployeeStore) ByRole(roleID int64) []entity.Employee {
	var out []entity.Employee
	for _, e := range s.Items() {
		if e.RoleID == roleID {
			out = append(out, e)
		}
	}
	return out
}
