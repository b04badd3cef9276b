package blogauth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/blogauth/internal/stores"
	gojwt "github.com/golang-jwt/jwt/v5"
)

const (
	auditEventSignupRequested       = "signup_requested"
	auditEventSignupDuplicate       = "signup_duplicate"
	auditEventOTPVerified           = "otp_verified"
	auditEventOTPMismatch           = "otp_mismatch"
	auditEventOTPMissing            = "otp_missing"
	auditEventAccountCreated        = "account_created"
	auditEventAccountCreationFailed = "account_creation_failed"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetConfirm  = "password_reset_confirm"
	auditEventPasswordResetReplay   = "password_reset_replay"
	auditEventNotificationFailed    = "notification_failed"
)

// AuditErrorCode is the coarse failure reason recorded on an AuditEvent.
type AuditErrorCode string

const (
	auditErrDuplicate     AuditErrorCode = "duplicate"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrTokenExpired  AuditErrorCode = "token_expired"
	auditErrInvalidToken  AuditErrorCode = "invalid_token"
	auditErrNotifyFailure AuditErrorCode = "notification_failed"
	auditErrInternal      AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode never returns err.Error() of a foreign error, which could
// echo user input or backend details into the audit trail.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var classified *Error
	switch {
	case errors.As(err, &classified):
		return AuditErrorCode(strings.ToLower(classified.Code))
	case errors.Is(err, ErrIdentityDuplicate):
		return auditErrDuplicate
	case errors.Is(err, stores.ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, gojwt.ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, gojwt.ErrTokenMalformed),
		errors.Is(err, gojwt.ErrTokenSignatureInvalid),
		errors.Is(err, gojwt.ErrTokenUnverifiable),
		errors.Is(err, gojwt.ErrTokenInvalidClaims),
		errors.Is(err, gojwt.ErrTokenNotValidYet),
		errors.Is(err, gojwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, gojwt.ErrTokenInvalidIssuer),
		errors.Is(err, gojwt.ErrTokenInvalidAudience):
		return auditErrInvalidToken
	case errors.Is(err, errNotify):
		return auditErrNotifyFailure
	default:
		return auditErrInternal
	}
}
