package errs

import (
	"errors"
	"net/http"
)

const (
	ErrStatusInternalServer      = http.StatusInternalServerError
	ErrStatusClient              = http.StatusBadRequest
	ErrStatusUnauthorized        = http.StatusUnauthorized
	ErrStatusNoPermission        = http.StatusForbidden
	ErrStatusNotFound            = http.StatusNotFound
	ErrStatusConflict            = http.StatusConflict
	ErrStatusUnprocessable       = http.StatusUnprocessableEntity
	ErrStatusServiceUnavailable  = http.StatusServiceUnavailable
	ErrStatusPaymentNotSupported = http.StatusNotImplemented
)

var (
	ErrInternalServer        = errors.New("Internal server error")
	ErrClient                = errors.New("Bad request")
	ErrNotLoggedIn           = errors.New("Unauthorized access")
	ErrTokenExpired          = errors.New("The token is already expired")
	ErrForbidden             = errors.New("You are not allowed to access this resource")
	ErrNotFound              = errors.New("Resource not found")
	ErrConflict              = errors.New("Conflicting record found")
	ErrInvalidStatus         = errors.New("Invalid payment status")
	ErrInvalidItemTransition = errors.New("Item status transition is not allowed")
	ErrProductNotFound       = errors.New("Product not found")

	ErrConfiguration      = errors.New("Payment is temporarily unavailable")
	ErrGatewayUnavailable = errors.New("Layanan pembayaran sedang tidak tersedia, silakan coba beberapa saat lagi")
	ErrGatewayRejected    = errors.New("Payment gateway rejected the request")
	ErrNotFoundUpstream   = errors.New("Transaction is not found on the payment gateway")

	ErrNotPaid         = errors.New("Transaction has not been paid")
	ErrAlreadyUsed     = errors.New("QR code has already been used")
	ErrSweepInProgress = errors.New("Another payment sweep is in progress")
)

var errorMap = map[error]int{
	ErrInternalServer:        ErrStatusInternalServer,
	ErrClient:                ErrStatusClient,
	ErrNotLoggedIn:           ErrStatusUnauthorized,
	ErrTokenExpired:          ErrStatusUnauthorized,
	ErrForbidden:             ErrStatusNoPermission,
	ErrNotFound:              ErrStatusNotFound,
	ErrConflict:              ErrStatusConflict,
	ErrInvalidStatus:         ErrStatusClient,
	ErrInvalidItemTransition: ErrStatusConflict,
	ErrProductNotFound:       ErrStatusNotFound,
	ErrConfiguration:         ErrStatusServiceUnavailable,
	ErrGatewayUnavailable:    ErrStatusServiceUnavailable,
	ErrGatewayRejected:       ErrStatusInternalServer,
	ErrNotFoundUpstream:      ErrStatusNotFound,
	ErrNotPaid:               ErrStatusUnprocessable,
	ErrAlreadyUsed:           ErrStatusConflict,
	ErrSweepInProgress:       ErrStatusConflict,
}

// detailed errors expose their wrapped cause to the caller; every other 5xx
// only shows the sentinel message.
var detailed = map[error]bool{
	ErrGatewayRejected: true,
}

func lookup(err error) (error, int) {
	for sentinel, code := range errorMap {
		if errors.Is(err, sentinel) {
			return sentinel, code
		}
	}
	return nil, errorMap[ErrInternalServer]
}

func GetErrorStatusCode(err error) int {
	_, code := lookup(err)
	return code
}

func GetErrorMessage(err error) string {
	sentinel, code := lookup(err)
	if sentinel == nil {
		return ErrInternalServer.Error()
	}
	if code >= http.StatusInternalServerError && !detailed[sentinel] {
		return sentinel.Error()
	}
	return err.Error()
}
