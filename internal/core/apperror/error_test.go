package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStore(t *testing.T) {
	connErr := errors.New("dial tcp 10.0.0.1:5432: connect: connection refused")

	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"store failure", connErr, CodeDatabase, http.StatusInternalServerError},
		{"cancelled", fmt.Errorf("query: %w", context.Canceled), CodeCancelled, StatusClientClosedRequest},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), CodeTimeout, http.StatusGatewayTimeout},
		{"validation passes through", NewValidation("bad page"), CodeValidation, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStore("stock", tt.err)
			appErr, ok := AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, GetHTTPStatus(err))
		})
	}

	assert.NoError(t, FromStore("stock", nil))
}

func TestFromStore_KeepsCause(t *testing.T) {
	cause := errors.New("relation \"proddta.f41021\" does not exist")
	err := FromStore("stock", cause)

	assert.True(t, IsStore(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), cause.Error())
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(FromStore("x", context.Canceled)))
	assert.True(t, IsCancelled(FromStore("x", context.DeadlineExceeded)))
	assert.False(t, IsCancelled(FromStore("x", errors.New("boom"))))
	assert.False(t, IsCancelled(errors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("page_size out of range").WithDetail("max", 100)
	assert.Equal(t, 100, err.Details["max"])
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", err)))
}
