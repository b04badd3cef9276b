// Package notify provides blogauth.Notifier implementations.
//
// [SMTPNotifier] renders plain-text mails for signup OTPs and password reset
// links and hands them to an SMTP relay. [LogNotifier] writes the same
// payloads to a slog.Logger for local development, where no relay exists.
package notify
