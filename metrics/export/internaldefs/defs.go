package internaldefs

import (
	"github.com/MrEthical07/blogauth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   blogauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   blogauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: blogauth.MetricSignupRequested, Name: "blogauth_signup_requested_total", Help: "Signups staged behind an OTP challenge."},
	{ID: blogauth.MetricSignupDuplicate, Name: "blogauth_signup_duplicate_total", Help: "Signups rejected because the email is registered."},
	{ID: blogauth.MetricSignupFailure, Name: "blogauth_signup_failure_total", Help: "Signups that failed on a backend error."},
	{ID: blogauth.MetricNotificationFailure, Name: "blogauth_notification_failure_total", Help: "OTP or reset-link deliveries that failed."},
	{ID: blogauth.MetricOTPVerified, Name: "blogauth_otp_verified_total", Help: "OTP challenges answered correctly."},
	{ID: blogauth.MetricOTPMismatch, Name: "blogauth_otp_mismatch_total", Help: "OTP challenges answered incorrectly."},
	{ID: blogauth.MetricOTPMissing, Name: "blogauth_otp_missing_total", Help: "OTP verifications with no pending signup."},
	{ID: blogauth.MetricAccountCreated, Name: "blogauth_account_created_total", Help: "Users created from verified signups."},
	{ID: blogauth.MetricAccountCreationFailed, Name: "blogauth_account_creation_failed_total", Help: "Verified signups the user store rejected."},
	{ID: blogauth.MetricLoginSuccess, Name: "blogauth_login_success_total", Help: "Successful signins."},
	{ID: blogauth.MetricLoginFailure, Name: "blogauth_login_failure_total", Help: "Failed signins."},
	{ID: blogauth.MetricPasswordUpgraded, Name: "blogauth_password_upgraded_total", Help: "Stored hashes upgraded on signin."},
	{ID: blogauth.MetricRefreshSuccess, Name: "blogauth_refresh_success_total", Help: "Access tokens reissued from a refresh token."},
	{ID: blogauth.MetricRefreshFailure, Name: "blogauth_refresh_failure_total", Help: "Rejected refresh tokens."},
	{ID: blogauth.MetricPasswordResetRequest, Name: "blogauth_password_reset_request_total", Help: "Password reset links issued."},
	{ID: blogauth.MetricPasswordResetConfirmSuccess, Name: "blogauth_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: blogauth.MetricPasswordResetConfirmFailure, Name: "blogauth_password_reset_confirm_failure_total", Help: "Rejected password reset confirmations."},
	{ID: blogauth.MetricValidateFailure, Name: "blogauth_validate_failure_total", Help: "Rejected access tokens."},
}

var HistogramDefs = []HistogramDef{
	{ID: blogauth.MetricHashLatency, Name: "blogauth_hash_latency_seconds", Help: "Password hashing latency."},
	{ID: blogauth.MetricValidateLatency, Name: "blogauth_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the engine
// keeps one extra +Inf bucket.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// AuditDroppedName is exported alongside the engine counters.
const (
	AuditDroppedName = "blogauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals, so the last
// element is the sample count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
