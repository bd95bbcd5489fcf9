// Package ports defines interfaces (hexagonal ports) for the console's
// outer collaborators. Implementations live in internal/adapters;
// orchestration in internal/service.
package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a BlobStore when the key holds nothing.
var ErrNotFound = errors.New("blob not found")

// Fixed keys for persisted console state.
const (
	KeySession      = "base_auth"
	KeyPreferences  = "admin-translation-preferences"
	KeyDashboardSel = "selected_dashboard"
)

// BlobStore persists opaque values under fixed keys between runs.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Navigator is the abstract "navigate to path" primitive.
type Navigator interface {
	NavigateTo(ctx context.Context, path string) error
}

// NoticeLevel is the severity of a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient user-visible notification.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}

// Notifier shows transient notices to the operator.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}
