package api

import (
	"errors"
	"net/http"

	"travelbooking/internal/domain"

	"google.golang.org/grpc/codes"
)

// httpStatus maps a workflow failure kind to its HTTP status.
func httpStatus(err error) int {
	switch domain.Kind(err) {
	case domain.ErrUnauthenticated:
		return http.StatusUnauthorized
	case domain.ErrForbidden:
		return http.StatusForbidden
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrConflict, domain.ErrOutOfStock:
		return http.StatusConflict
	case domain.ErrPaymentNotSucceeded:
		return http.StatusPaymentRequired
	case domain.ErrUpstreamPayment:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the machine-readable code sent alongside the message.
func errorCode(err error) string {
	switch domain.Kind(err) {
	case domain.ErrUnauthenticated:
		return "UNAUTHENTICATED"
	case domain.ErrForbidden:
		return "FORBIDDEN"
	case domain.ErrNotFound:
		return "NOT_FOUND"
	case domain.ErrValidation:
		return "VALIDATION"
	case domain.ErrOutOfStock:
		return "OUT_OF_STOCK"
	case domain.ErrConflict:
		return "CONFLICT"
	case domain.ErrPaymentNotSucceeded:
		return "PAYMENT_NOT_SUCCEEDED"
	case domain.ErrUpstreamPayment:
		return "UPSTREAM_PAYMENT"
	default:
		return "INTERNAL"
	}
}

func grpcCode(err error) codes.Code {
	switch domain.Kind(err) {
	case domain.ErrUnauthenticated:
		return codes.Unauthenticated
	case domain.ErrForbidden:
		return codes.PermissionDenied
	case domain.ErrNotFound:
		return codes.NotFound
	case domain.ErrValidation:
		return codes.InvalidArgument
	case domain.ErrConflict, domain.ErrOutOfStock, domain.ErrPaymentNotSucceeded:
		return codes.FailedPrecondition
	case domain.ErrUpstreamPayment:
		return codes.Unavailable
	}
	if errors.Is(err, errRateLimited) {
		return codes.ResourceExhausted
	}
	return codes.Internal
}

var errRateLimited = errors.New("rate limit exceeded")

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

// writeDomainError reports err to the client. Internal failures are logged
// and hidden behind a generic message.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Code: errorCode(err), Retryable: domain.IsRetryable(err)})
}
