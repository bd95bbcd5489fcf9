package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/target/mmk-admin-console/internal/domain/entity"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperrors.Validation("bad"), http.StatusBadRequest},
		{"auth expired", apperrors.AuthExpired("expired"), http.StatusUnauthorized},
		{"unauthorized", apperrors.Unauthorized("no"), http.StatusUnauthorized},
		{"forbidden", apperrors.Forbidden("no"), http.StatusForbidden},
		{"not found", apperrors.NotFound("gone"), http.StatusNotFound},
		{"connectivity", apperrors.Connectivity("down"), http.StatusBadGateway},
		{"unknown 409 passes through", apperrors.Unknown("conflict").WithStatus(http.StatusConflict), http.StatusConflict},
		{"unknown without status", apperrors.Wrap(context.Canceled, apperrors.ErrCodeUnknown, "canceled"), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("fetch roles: %w", apperrors.Forbidden("no")), http.StatusForbidden},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteAppError_IncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAppError(rec, apperrors.ValidationField("email", "Email is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation","message":"Email is required","field":"email"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	assert.True(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "a", dst.Name)

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
	assert.False(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseListParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/app/posts?page=0&limit=500&sort_by=title&sort_order=ASC&status=draft", nil)
	p := parseListParams(req)

	assert.Equal(t, entity.DefaultPage, p.Page)
	assert.Equal(t, maxListLimit, p.Limit)
	assert.Equal(t, "title", p.SortBy)
	assert.Equal(t, entity.SortAsc, p.SortOrder)
	assert.Equal(t, map[string]string{"status": "draft"}, p.Filters)

	p = parseListParams(httptest.NewRequest(http.MethodGet, "/app/posts?limit=abc", nil))
	assert.Equal(t, entity.DefaultLimit, p.Limit)
	assert.Equal(t, entity.SortDesc, p.SortOrder)
}

func TestExactPattern(t *testing.T) {
	assert.Equal(t, "/{$}", exactPattern("/"))
	assert.Equal(t, "/welcome", exactPattern("/welcome"))
	assert.Equal(t, "GET /app/posts/{id}/edit", routePattern("/app/posts/:id/edit"))
}
