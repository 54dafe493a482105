package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/core/engine"
	"github.com/plainly/plainly/internal/metrics"
	"github.com/plainly/plainly/internal/observability"
	"github.com/plainly/plainly/internal/server/middleware"
)

// Error codes returned in the response envelope.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeNotFound          = "NOT_FOUND"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeMissingCredential = "MISSING_CREDENTIAL"
	CodeUpstreamFailure   = "UPSTREAM_FAILURE"
	CodeInternal          = "INTERNAL_ERROR"
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
	CodeExternalService   = "EXTERNAL_SERVICE_ERROR"
)

// User Errors (400-level)
func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

// NewRateLimitedError reports a premium tier denial. retryAfter is rounded up
// to whole seconds and exposed as details.retry_after_seconds.
func NewRateLimitedError(message string, retryAfter int) *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(CodeRateLimited, message)
	if retryAfter > 0 {
		env = env.WithDetails(map[string]interface{}{"retry_after_seconds": retryAfter})
	}
	return env
}

// Server Errors (500-level)
func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewMissingCredentialError(message string) *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(CodeMissingCredential, message)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// Wrap functions attach the request's correlation id and the wrapped error text.

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInvalidInput, err, message)
}

func WrapUpstreamFailure(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	env := wrap(ctx, CodeUpstreamFailure, err, message)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInternal, err, message)
}

func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	envelope = envelope.WithTraceID(extractCorrelationID(ctx))
	return withWrappedError(envelope, err)
}

// FromSimplifyError maps a simplifier failure onto its envelope. Errors that
// are not simplifier errors become INTERNAL_ERROR.
func FromSimplifyError(ctx context.Context, err error) *errors.ErrorEnvelope {
	var simplifyErr *engine.Error
	if !stderrors.As(err, &simplifyErr) || simplifyErr == nil {
		return WrapInternal(ctx, err, "unexpected error")
	}

	switch simplifyErr.Kind {
	case engine.KindInvalidRequest:
		env := NewInvalidInputError(simplifyErr.Message)
		if len(simplifyErr.Fields) > 0 {
			env = env.WithDetails(map[string]interface{}{"missing_fields": simplifyErr.Fields})
		}
		return env
	case engine.KindMissingCredential:
		return NewMissingCredentialError(simplifyErr.Message)
	case engine.KindRateLimited:
		return NewRateLimitedError(simplifyErr.Message, RetryAfterSeconds(simplifyErr))
	case engine.KindUpstreamFailure:
		// The provider body stays in logs; callers only see the message.
		return WrapUpstreamFailure(ctx, simplifyErr.Unwrap(), simplifyErr.Message)
	default:
		return WrapInternal(ctx, err, "unexpected error")
	}
}

// RetryAfterSeconds returns the Retry-After value for a rate-limited error, or 0.
func RetryAfterSeconds(err error) int {
	var simplifyErr *engine.Error
	if !stderrors.As(err, &simplifyErr) || simplifyErr == nil || simplifyErr.Kind != engine.KindRateLimited {
		return 0
	}
	seconds := int(math.Ceil(simplifyErr.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// extractCorrelationID gets correlation ID from context, falls back to generating new UUID
func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	var simplifyErr *engine.Error
	if stderrors.As(err, &simplifyErr) {
		return FromSimplifyError(context.Background(), err)
	}

	env := errors.NewErrorEnvelope(CodeInternal, "unexpected error")
	env, _ = env.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID attaches a correlation ID to the envelope using the context when available.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	if envelope.CorrelationID != "" {
		return envelope
	}

	var correlationID string
	if ctx != nil {
		correlationID = middleware.GetRequestID(ctx)
	}

	if correlationID == "" {
		correlationID = "fallback-" + errors.GenerateCorrelationID()
	}

	return envelope.WithCorrelationID(correlationID)
}

// HTTPStatusFromEnvelope resolves the HTTP status code corresponding to an error envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an error code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeExternalService:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		// MISSING_CREDENTIAL and UPSTREAM_FAILURE are 500 like any internal error.
		return http.StatusInternalServerError
	}
}

// withWrappedError records err in the envelope context, which is logged but
// never returned to callers.
func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}

	updated, updateErr := envelope.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	if updateErr != nil {
		return envelope
	}
	return updated
}

// ResponseDetails returns the envelope details that are safe to expose.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil || len(envelope.Details) == 0 {
		return nil
	}

	details := make(map[string]interface{}, len(envelope.Details))
	for key, value := range envelope.Details {
		details[key] = value
	}
	return details
}

// HTTPErrorDetail captures the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope structure.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError normalizes the supplied error and writes a JSON response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if r != nil {
		var simplifyErr *engine.Error
		if stderrors.As(err, &simplifyErr) {
			if w != nil {
				if seconds := RetryAfterSeconds(err); seconds > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(seconds))
				}
			}
			RespondWithEnvelope(w, r, FromSimplifyError(r.Context(), err))
			return
		}
	}
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope finalizes the provided envelope, logging and emitting metrics.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}

	if r != nil {
		envelope = EnsureCorrelationID(envelope, r.Context())
	} else {
		envelope = EnsureCorrelationID(envelope, nil)
	}

	statusCode := HTTPStatusFromEnvelope(envelope)

	response := HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   ResponseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	}

	logHTTPError(envelope, statusCode)
	emitErrorMetrics(r, envelope, statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}

	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}

	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		observability.ServerLogger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		observability.ServerLogger.Warn(envelope.Message, fields...)
	default:
		observability.ServerLogger.Info(envelope.Message, fields...)
	}
}

func emitErrorMetrics(r *http.Request, envelope *errors.ErrorEnvelope, statusCode int) {
	if envelope == nil {
		return
	}

	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(routePattern(r), envelope.Code)
	}
}

// routePattern keeps unmatched paths out of metric labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
