package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetErrorStatusCode(t *testing.T) {
	testCases := []struct {
		Name     string
		Err      error
		Expected int
	}{
		{Name: "sentinel", Err: ErrAlreadyUsed, Expected: http.StatusConflict},
		{Name: "wrapped sentinel", Err: fmt.Errorf("charge: %w", ErrGatewayUnavailable), Expected: http.StatusServiceUnavailable},
		{Name: "not paid", Err: ErrNotPaid, Expected: http.StatusUnprocessableEntity},
		{Name: "unknown", Err: errors.New("boom"), Expected: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, GetErrorStatusCode(tc.Err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	unavailable := fmt.Errorf("%w: dial tcp 10.0.0.1:443: i/o timeout", ErrGatewayUnavailable)
	assert.Equal(t, ErrGatewayUnavailable.Error(), GetErrorMessage(unavailable))

	rejected := fmt.Errorf("%w: Access denied due to unauthorized transaction", ErrGatewayRejected)
	assert.Equal(t, rejected.Error(), GetErrorMessage(rejected))

	assert.Equal(t, ErrInternalServer.Error(), GetErrorMessage(errors.New("pq: connection refused")))
	assert.Equal(t, ErrForbidden.Error(), GetErrorMessage(ErrForbidden))
}
