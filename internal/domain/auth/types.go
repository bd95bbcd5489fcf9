// Package auth contains domain-level types for authentication, sessions and
// role-based authorization. It is pure and free of framework/adapter concerns.
package auth

import (
	"strconv"
	"strings"
)

// RoleCategory is the coarse role bucket used for UI decisions.
// Keep string form for easy persistence.
type RoleCategory string

const (
	RoleAdmin     RoleCategory = "admin"
	RoleFinancial RoleCategory = "financial"
	RoleTechnical RoleCategory = "technical"
	RoleSupport   RoleCategory = "support"
	RoleSales     RoleCategory = "sales"
	RoleManager   RoleCategory = "manager"
)

var roleLabels = map[string]RoleCategory{
	"owner":              RoleAdmin,
	"admin":              RoleAdmin,
	"administrator":      RoleAdmin,
	"financial":          RoleFinancial,
	"finance":            RoleFinancial,
	"technical":          RoleTechnical,
	"technician":         RoleTechnical,
	"support":            RoleSupport,
	"customer support":   RoleSupport,
	"sales":              RoleSales,
	"sales rep":          RoleSales,
	"manager":            RoleManager,
	"department manager": RoleManager,
}

// MapRoleName maps a backend role label to a RoleCategory.
// Unknown labels fall back to the least-privileged category (support).
func MapRoleName(label string) RoleCategory {
	if c, ok := roleLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
		return c
	}
	return RoleSupport
}

// User is the profile derived from the login/register response.
type User struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	Username  string       `json:"username,omitempty"`
	FirstName string       `json:"first_name,omitempty"`
	LastName  string       `json:"last_name,omitempty"`
	Name      string       `json:"name"`
	Phone     string       `json:"phone,omitempty"`
	Role      RoleCategory `json:"role"`
	RoleName  string       `json:"role_name,omitempty"`
	Avatar    string       `json:"avatar,omitempty"`
	LastLogin string       `json:"last_login,omitempty"`
}

// Session is the single authenticated identity held by the console.
// The JSON shape is the persisted blob.
type Session struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	RoleID          *int64 `json:"roleId"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Restorable reports whether a persisted blob carries enough to be treated
// as authenticated without a network roundtrip.
func (s Session) Restorable() bool {
	return s.Token != "" && s.User != nil
}

// Principal identifies who authorization questions are asked for.
type Principal struct {
	UserID int64
	RoleID *int64
}

// Principal returns the session's principal and whether one exists.
func (s Session) Principal() (Principal, bool) {
	if !s.IsAuthenticated || s.User == nil {
		return Principal{}, false
	}
	return Principal{UserID: s.User.ID, RoleID: s.RoleID}, true
}

// AuthResponse is the backend payload for login and register.
type AuthResponse struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email"`
	RoleID      int64  `json:"role_id"`
	RoleName    string `json:"role_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	LastLogin   string `json:"last_login,omitempty"`
	AccessToken string `json:"accessToken"`
	Exp         int64  `json:"exp"`
	Extend      struct {
		Role struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"role"`
		UserID int64 `json:"user_id"`
	} `json:"extend"`
}

// ToUser builds the console profile from an auth response.
func (r AuthResponse) ToUser() User {
	roleName := r.Extend.Role.Name
	if roleName == "" {
		roleName = r.RoleName
	}
	return User{
		ID:        r.ID,
		Email:     r.Email,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Name:      strings.TrimSpace(r.FirstName + " " + r.LastName),
		Phone:     r.Phone,
		Role:      MapRoleName(roleName),
		RoleName:  roleName,
		Avatar:    r.AvatarURL,
		LastLogin: r.LastLogin,
	}
}

// EffectiveRoleID prefers the nested role id and falls back to role_id.
func (r AuthResponse) EffectiveRoleID() int64 {
	if r.Extend.Role.ID != 0 {
		return r.Extend.Role.ID
	}
	return r.RoleID
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest carries self-registration data.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Permission is one grant in the backend's permission catalog.
type Permission struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Resource     string `json:"resource"`
	ResourceType string `json:"resource_type,omitempty"`
	Action       string `json:"action"`
	Description  string `json:"description,omitempty"`
}

// ResourceName prefers resource_type and falls back to resource.
func (p Permission) ResourceName() string {
	if p.ResourceType != "" {
		return p.ResourceType
	}
	return p.Resource
}

// Key returns the PermissionSet key "resource:action".
func (p Permission) Key() string {
	return PermissionKey(p.ResourceName(), p.Action)
}

// Role is a backend role with its optional permissions.
type Role struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	IsSystem        bool         `json:"is_system,omitempty"`
	PermissionCount int          `json:"permission_count,omitempty"`
	Permissions     []Permission `json:"permissions,omitempty"`
}

// PermissionCheck is the answer of the scoped check endpoint.
type PermissionCheck struct {
	HasPermission bool   `json:"has_permission"`
	Reason        string `json:"reason,omitempty"`
}

// PermissionKey builds the PermissionSet key.
func PermissionKey(resource, action string) string {
	return resource + ":" + action
}

// ScopedKey builds the resource-scoped cache key
// "{userId}-{resource}-{action}[-{resourceId}]".
func ScopedKey(userID int64, resource, action, resourceID string) string {
	key := ScopedPrefix(userID) + resource + "-" + action
	if resourceID != "" {
		key += "-" + resourceID
	}
	return key
}

// ScopedPrefix is the prefix shared by every scoped key of a user.
func ScopedPrefix(userID int64) string {
	return strconv.FormatInt(userID, 10) + "-"
}
