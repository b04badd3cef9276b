package blogauth

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/blogauth/jwt"
)

// Config holds every tunable of the Engine. Build copies it, so mutating a
// Config after Build has no effect on the running engine.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	Signup        SignupConfig
	PasswordReset PasswordResetConfig
	Username      UsernameConfig
	Store         StoreConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// TokenConfig configures one token kind.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
}

// JWTConfig configures access and refresh tokens. The two kinds never share a
// key; the claim checks below apply to both.
type JWTConfig struct {
	Access       TokenConfig
	Refresh      TokenConfig
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int

	// LegacyBcrypt accepts bcrypt hashes at login. BcryptCost is the floor
	// below which such hashes count as weak; 0 means bcrypt.DefaultCost.
	LegacyBcrypt   bool
	BcryptCost     int
	UpgradeOnLogin bool
}

/*
====================================
SIGNUP CONFIG
====================================
*/

type SignupConfig struct {
	PendingTTL  time.Duration
	OTPDigits   int
	DefaultRole string
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

type PasswordResetConfig struct {
	TicketTTL time.Duration
}

/*
====================================
USERNAME CONFIG
====================================
*/

type UsernameConfig struct {
	MaxBaseLength int
	MaxSuffix     int
	Fallback      string
}

/*
====================================
STORE CONFIG
====================================
*/

type StoreConfig struct {
	RedisPrefix string
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a Config with production defaults. JWT keys are left
// empty and must be supplied before Build.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Access: TokenConfig{
				TTL:           15 * time.Minute,
				SigningMethod: "hs256",
			},
			Refresh: TokenConfig{
				TTL:           7 * 24 * time.Hour,
				SigningMethod: "hs256",
			},
			Issuer:       "blogauth",
			Leeway:       30 * time.Second,
			MaxFutureIAT: 10 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			LegacyBcrypt:     true,
			UpgradeOnLogin:   true,
		},
		Signup: SignupConfig{
			PendingTTL:  300 * time.Second,
			OTPDigits:   6,
			DefaultRole: "user",
		},
		PasswordReset: PasswordResetConfig{
			TicketTTL: 300 * time.Second,
		},
		Username: UsernameConfig{
			MaxBaseLength: 20,
			MaxSuffix:     1000,
			Fallback:      "user",
		},
		Store: StoreConfig{
			RedisPrefix: "blogauth",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Access.PrivateKey = cloneBytes(cfg.JWT.Access.PrivateKey)
	out.JWT.Access.PublicKey = cloneBytes(cfg.JWT.Access.PublicKey)
	out.JWT.Refresh.PrivateKey = cloneBytes(cfg.JWT.Refresh.PrivateKey)
	out.JWT.Refresh.PublicKey = cloneBytes(cfg.JWT.Refresh.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Engine cannot run safely with.
func (c *Config) Validate() error {
	// JWT
	if err := validateTokenConfig("JWT Access", c.JWT.Access); err != nil {
		return err
	}
	if err := validateTokenConfig("JWT Refresh", c.JWT.Refresh); err != nil {
		return err
	}
	if sharesKey(c.JWT.Access, c.JWT.Refresh) {
		return errors.New("JWT Access and Refresh must not share a secret")
	}
	if c.JWT.Refresh.TTL < c.JWT.Access.TTL {
		return errors.New("JWT Refresh TTL must be >= Access TTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.MaxFutureIAT < 0 || c.JWT.MaxFutureIAT > 24*time.Hour {
		return errors.New("JWT MaxFutureIAT must be between 0 and 24h")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}
	if c.Password.LegacyBcrypt && c.Password.BcryptCost != 0 && (c.Password.BcryptCost < 10 || c.Password.BcryptCost > 31) {
		return errors.New("Password BcryptCost must be between 10 and 31")
	}

	// Signup
	if c.Signup.PendingTTL <= 0 {
		return errors.New("Signup PendingTTL must be > 0")
	}
	if c.Signup.OTPDigits < 4 || c.Signup.OTPDigits > 10 {
		return errors.New("Signup OTPDigits must be between 4 and 10")
	}
	if strings.TrimSpace(c.Signup.DefaultRole) == "" {
		return errors.New("Signup DefaultRole is required")
	}

	// Password Reset
	if c.PasswordReset.TicketTTL <= 0 {
		return errors.New("PasswordReset TicketTTL must be > 0")
	}

	// Username
	if c.Username.MaxBaseLength < 0 {
		return errors.New("Username MaxBaseLength must be >= 0")
	}
	if c.Username.MaxSuffix < 0 {
		return errors.New("Username MaxSuffix must be >= 0")
	}

	// Store
	if strings.ContainsAny(c.Store.RedisPrefix, " \t\r\n") {
		return errors.New("Store RedisPrefix must not contain whitespace")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}

// sharesKey reports whether a token of one kind would verify as the other.
// Claims carry no token kind, so distinct keys are the only separation.
func sharesKey(access, refresh TokenConfig) bool {
	if access.SigningMethod != refresh.SigningMethod {
		return false
	}
	switch access.SigningMethod {
	case "hs256":
		return bytes.Equal(access.PrivateKey, refresh.PrivateKey)
	case "ed25519":
		a, errA := jwt.EdPublicKey(access.PrivateKey, access.PublicKey)
		r, errR := jwt.EdPublicKey(refresh.PrivateKey, refresh.PublicKey)
		if errA != nil || errR != nil {
			// unparsable keys are rejected when the managers are built
			return bytes.Equal(access.PublicKey, refresh.PublicKey)
		}
		return a.Equal(r)
	}
	return false
}

func validateTokenConfig(name string, tc TokenConfig) error {
	if tc.TTL <= 0 {
		return errors.New(name + " TTL must be > 0")
	}
	switch tc.SigningMethod {
	case "hs256":
		if len(tc.PrivateKey) < 32 {
			return errors.New(name + " hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(tc.PrivateKey) == 0 {
			return errors.New(name + " ed25519 requires PrivateKey")
		}
		if len(tc.PublicKey) == 0 {
			return errors.New(name + " ed25519 requires PublicKey")
		}
	default:
		return errors.New(name + " unsupported signing method")
	}
	return nil
}
