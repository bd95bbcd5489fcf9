package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/target/mmk-admin-console/internal/service"
)

func TestDefaultRouteTable_Lookup(t *testing.T) {
	table := DefaultRouteTable()
	tests := []struct {
		path string
		want Requirement
		ok   bool
	}{
		{"/app/users", Requirement{"employee", "list"}, true},
		{"/app/users/roles/permissions", Requirement{"permission", "list"}, true},
		{"/app/settings", Requirement{"settings", "read"}, true},
		{"/app/employees/5/edit", Requirement{"employee", "update"}, true},
		{"/app/employees/5", Requirement{"employee", "read"}, true},
		{"/app/employees/roles/3", Requirement{"role", "read"}, true},
		{"/app/employees/roles/3/permissions", Requirement{"permission", "assign"}, true},
		{"/app/business-customers/8/edit", Requirement{"business_customer", "update"}, true},
		{"/app/orders/12", Requirement{"order", "read"}, true},
		{"/app/plans/2/edit", Requirement{"plan", "update"}, true},
		{"/app/posts", Requirement{"post", "list"}, true},
		{"/app/posts/create", Requirement{"post", "create"}, true},
		{"/app/posts/7", Requirement{"post", "read"}, true},
		{"/app/tags/7/edit", Requirement{"tag", "update"}, true},
		{"/app/products/abc", Requirement{}, false},
		{"/app/employees/x/edit", Requirement{}, false},
		{"/app/dashboard", Requirement{}, false},
		{"/app/orders/12/edit", Requirement{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := table.Lookup(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouteTable_Module(t *testing.T) {
	table := NewRouteTable().Module(service.Module{
		Routes:      service.ModuleRoutes{List: "/app/widgets", Edit: "/app/widgets/:id/edit", View: "/app/widgets/:id"},
		Permissions: service.ModulePermissions{List: "widget:list", Update: "widget:update", View: "bogus"},
	})

	req, ok := table.Lookup("/app/widgets")
	assert.True(t, ok)
	assert.Equal(t, "widget:list", req.Key())

	req, ok = table.Lookup("/app/widgets/4/edit")
	assert.True(t, ok)
	assert.Equal(t, "widget:update", req.Key())

	_, ok = table.Lookup("/app/widgets/4")
	assert.False(t, ok, "malformed permission keys are not mapped")
}
