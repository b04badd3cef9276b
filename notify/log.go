package notify

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/blogauth"
)

// LogNotifier writes OTPs and reset links to a logger instead of mailing
// them. It must not be used in production: the log then holds live secrets.
type LogNotifier struct {
	logger   *slog.Logger
	resetURL string
}

var _ blogauth.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger, resetURL string) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify"), resetURL: resetURL}
}

func (n *LogNotifier) SendOTP(ctx context.Context, email, code string) error {
	n.logger.InfoContext(ctx, "signup otp", "email", email, "otp", code)
	return nil
}

func (n *LogNotifier) SendResetLink(ctx context.Context, email, token string) error {
	n.logger.InfoContext(ctx, "password reset link", "email", email, "link", n.resetURL+"?token="+token)
	return nil
}
