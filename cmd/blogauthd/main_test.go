package main

import (
	"testing"
	"time"

	"github.com/MrEthical07/blogauth/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestSMTPConfigKeepsTTLsApart(t *testing.T) {
	cfg := &config.Config{
		SMTPHost:      "smtp.example.com",
		SMTPPort:      587,
		SMTPFrom:      "no-reply@example.com",
		ResetURL:      "https://blog.example.com/reset-password",
		OTPTTL:        2 * time.Minute,
		ResetTokenTTL: 15 * time.Minute,
	}

	got := smtpConfig(cfg)
	assert.Equal(t, 2*time.Minute, got.OTPExpiry)
	assert.Equal(t, 15*time.Minute, got.ResetExpiry)
	assert.Equal(t, "smtp.example.com", got.Host)
	assert.Equal(t, cfg.ResetURL, got.ResetURL)
}
