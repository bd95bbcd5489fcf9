package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
)

// AuthResponseBuilder provides a fluent interface for building login responses for testing.
type AuthResponseBuilder struct {
	resp domainauth.AuthResponse
}

// NewAuthResponse creates a new AuthResponseBuilder with sensible defaults.
func NewAuthResponse() *AuthResponseBuilder {
	b := &AuthResponseBuilder{}
	b.resp.ID = 42
	b.resp.Email = "ada@example.com"
	b.resp.FirstName = "Ada"
	b.resp.LastName = "Lovelace"
	b.resp.Username = "ada"
	b.resp.AccessToken = "token-42"
	b.resp.RoleID = 2
	b.resp.Extend.Role.ID = 2
	b.resp.Extend.Role.Name = "Manager"
	b.resp.Extend.UserID = 42
	return b
}

// WithUser sets the user id and email.
func (b *AuthResponseBuilder) WithUser(id int64, email string) *AuthResponseBuilder {
	b.resp.ID = id
	b.resp.Extend.UserID = id
	b.resp.Email = email
	return b
}

// WithRole sets the role id and label.
func (b *AuthResponseBuilder) WithRole(id int64, name string) *AuthResponseBuilder {
	b.resp.RoleID = id
	b.resp.Extend.Role.ID = id
	b.resp.Extend.Role.Name = name
	return b
}

// WithToken sets the access token.
func (b *AuthResponseBuilder) WithToken(token string) *AuthResponseBuilder {
	b.resp.AccessToken = token
	return b
}

// Build returns the built response.
func (b *AuthResponseBuilder) Build() domainauth.AuthResponse {
	return b.resp
}

// SignedToken returns an HS256 JWT for userID expiring at exp.
// The console never verifies signatures, so the key is arbitrary.
func SignedToken(t TestingTB, userID int64, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
	}).SignedString([]byte("testutil"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// Permissions builds a permission list from "resource:action" pairs.
func Permissions(pairs ...[2]string) []domainauth.Permission {
	out := make([]domainauth.Permission, 0, len(pairs))
	for i, p := range pairs {
		out = append(out, domainauth.Permission{
			ID:       int64(i + 1),
			Name:     p[0] + "_" + p[1],
			Resource: p[0],
			Action:   p[1],
		})
	}
	return out
}
