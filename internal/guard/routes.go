package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	"github.com/target/mmk-admin-console/internal/service"
)

// Requirement is the permission a page needs.
type Requirement struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Key is "resource:action".
func (r Requirement) Key() string {
	return domainauth.PermissionKey(r.Resource, r.Action)
}

// RouteTable maps console pages to the permission they require: exact paths
// first, then parameterized patterns.
type RouteTable struct {
	static  map[string]Requirement
	router  *mux.Router
	dynamic map[*mux.Route]Requirement
}

// NewRouteTable returns an empty table.
func NewRouteTable() *RouteTable {
	return &RouteTable{
		static:  make(map[string]Requirement),
		router:  mux.NewRouter(),
		dynamic: make(map[*mux.Route]Requirement),
	}
}

// Static maps one exact path.
func (t *RouteTable) Static(path string, req Requirement) *RouteTable {
	t.static[path] = req
	return t
}

// Dynamic maps a gorilla/mux path template such as "/app/orders/{id:[0-9]+}".
func (t *RouteTable) Dynamic(template string, req Requirement) *RouteTable {
	t.dynamic[t.router.NewRoute().Path(template)] = req
	return t
}

// Module maps the pages of a registered module. ":id" segments become
// numeric path variables.
func (t *RouteTable) Module(m service.Module) *RouteTable {
	add := func(route, perm string) {
		if route == "" {
			return
		}
		r, a, ok := service.SplitPermission(perm)
		if !ok {
			return
		}
		req := Requirement{Resource: r, Action: a}
		if strings.Contains(route, ":id") {
			t.Dynamic(strings.ReplaceAll(route, ":id", "{id:[0-9]+}"), req)
			return
		}
		t.Static(route, req)
	}
	add(m.Routes.List, m.Permissions.List)
	add(m.Routes.Create, m.Permissions.Create)
	add(m.Routes.View, m.Permissions.View)
	add(m.Routes.Edit, m.Permissions.Update)
	return t
}

// Lookup finds the requirement for path. ok is false for unmapped pages.
func (t *RouteTable) Lookup(path string) (Requirement, bool) {
	if req, ok := t.static[path]; ok {
		return req, true
	}
	r := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}
	var match mux.RouteMatch
	if !t.router.Match(r, &match) || match.Route == nil {
		return Requirement{}, false
	}
	req, ok := t.dynamic[match.Route]
	return req, ok
}

// DefaultRouteTable is the console's page permission table.
func DefaultRouteTable() *RouteTable {
	t := NewRouteTable().
		Static("/app/users", Requirement{"employee", "list"}).
		Static("/app/users/new", Requirement{"employee", "create"}).
		Static("/app/users/roles", Requirement{"role", "list"}).
		Static("/app/users/roles/new", Requirement{"role", "create"}).
		Static("/app/users/roles/permissions", Requirement{"permission", "list"}).
		Static("/app/customers", Requirement{"customer", "list"}).
		Static("/app/customers/new", Requirement{"customer", "create"}).
		Static("/app/business-customers", Requirement{"business_customer", "list"}).
		Static("/app/business-customers/new", Requirement{"business_customer", "create"}).
		Static("/app/orders", Requirement{"order", "list"}).
		Static("/app/orders/new", Requirement{"order", "create"}).
		Static("/app/plans", Requirement{"plan", "list"}).
		Static("/app/plans/new", Requirement{"plan", "create"}).
		Static("/app/settings", Requirement{"settings", "read"})

	t.Dynamic("/app/employees/roles/{id:[0-9]+}", Requirement{"role", "read"}).
		Dynamic("/app/employees/roles/{id:[0-9]+}/edit", Requirement{"role", "update"}).
		Dynamic("/app/employees/roles/{id:[0-9]+}/permissions", Requirement{"permission", "assign"}).
		Dynamic("/app/employees/{id:[0-9]+}", Requirement{"employee", "read"}).
		Dynamic("/app/employees/{id:[0-9]+}/edit", Requirement{"employee", "update"}).
		Dynamic("/app/customers/{id:[0-9]+}", Requirement{"customer", "read"}).
		Dynamic("/app/customers/{id:[0-9]+}/edit", Requirement{"customer", "update"}).
		Dynamic("/app/business-customers/{id:[0-9]+}", Requirement{"business_customer", "read"}).
		Dynamic("/app/business-customers/{id:[0-9]+}/edit", Requirement{"business_customer", "update"}).
		Dynamic("/app/orders/{id:[0-9]+}", Requirement{"order", "read"}).
		Dynamic("/app/plans/{id:[0-9]+}", Requirement{"plan", "read"}).
		Dynamic("/app/plans/{id:[0-9]+}/edit", Requirement{"plan", "update"})

	for _, m := range service.Modules() {
		t.Module(m)
	}
	return t
}
