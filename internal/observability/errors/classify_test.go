package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", goerrors.New("boom"), "errors_errorstring"},
		{"deadline", fmt.Errorf("probe: %w", context.DeadlineExceeded), "context_deadlineexceedederror"},
		{"backend answer", apperrors.Forbidden("no"), "api_forbidden"},
		{"wrapped backend answer", fmt.Errorf("fetch roles: %w", apperrors.NotFound("gone")), "api_not_found"},
		{
			"transport cause",
			apperrors.Wrap(&net.OpError{Op: "dial", Net: "tcp"}, apperrors.ErrCodeConnectivity, "Network connection failed"),
			"net_operror",
		},
		{
			"status wins over cause",
			apperrors.Wrap(goerrors.New("body"), apperrors.ErrCodeUnknown, "conflict").WithStatus(409),
			"api_unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
