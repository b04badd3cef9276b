package blogauth

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"testing"
	"time"
)

type edPair struct {
	private []byte
	public  []byte
}

func newEdPair(t *testing.T) edPair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return edPair{private: priv, public: pub}
}

func pemPublicKey(t *testing.T, raw []byte) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(ed25519.PublicKey(raw))
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func useEd25519(c *Config, access, refresh edPair) {
	c.JWT.Access.SigningMethod = "ed25519"
	c.JWT.Access.PrivateKey, c.JWT.Access.PublicKey = access.private, access.public
	c.JWT.Refresh.SigningMethod = "ed25519"
	c.JWT.Refresh.PrivateKey, c.JWT.Refresh.PublicKey = refresh.private, refresh.public
}

func TestConfigValidateAccepts(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"defaults":   func(*Config) {},
		"leeway 45s": func(c *Config) { c.JWT.Leeway = 45 * time.Second },
		"ed25519 access key": func(c *Config) {
			pub, priv, _ := ed25519.GenerateKey(nil)
			c.JWT.Access.SigningMethod = "ed25519"
			c.JWT.Access.PrivateKey, c.JWT.Access.PublicKey = priv, pub
		},
		"weak bcrypt cost with legacy off": func(c *Config) {
			c.Password.LegacyBcrypt = false
			c.Password.BcryptCost = 4
		},
		"ed25519 distinct pairs": func(c *Config) {
			useEd25519(c, newEdPair(t), newEdPair(t))
		},
		"audit with buffer": func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 1
		},
	} {
		cfg := testConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}
}

func TestConfigValidateRejects(t *testing.T) {
	shared := newEdPair(t)
	sharedPEM := edPair{private: shared.private, public: pemPublicKey(t, shared.public)}

	cases := []struct {
		mutate  func(*Config)
		mention string
	}{
		{func(c *Config) { c.JWT.Leeway = 3 * time.Minute }, "Leeway"},
		{func(c *Config) { c.JWT.Audience = "   " }, "Audience"},
		{func(c *Config) { c.JWT.MaxFutureIAT = -time.Second }, "MaxFutureIAT"},
		{func(c *Config) { c.JWT.Access.SigningMethod = "rs256" }, "unsupported"},
		{func(c *Config) { c.JWT.Refresh.PrivateKey = []byte("too-short") }, "32 bytes"},
		{func(c *Config) { c.JWT.Refresh.PrivateKey = c.JWT.Access.PrivateKey }, "share"},
		{func(c *Config) { c.JWT.Access.TTL, c.JWT.Refresh.TTL = time.Hour, time.Minute }, "Refresh TTL"},
		{func(c *Config) {
			_, priv, _ := ed25519.GenerateKey(nil)
			c.JWT.Access.SigningMethod = "ed25519"
			c.JWT.Access.PrivateKey = priv
		}, "PublicKey"},
		{func(c *Config) { useEd25519(c, shared, shared) }, "share"},
		{func(c *Config) { useEd25519(c, shared, sharedPEM) }, "share"},
		{func(c *Config) { c.Password.Memory = 1024 }, "Memory"},
		{func(c *Config) { c.Password.BcryptCost = 4 }, "BcryptCost"},
		{func(c *Config) { c.Signup.OTPDigits = 3 }, "OTPDigits"},
		{func(c *Config) { c.Signup.PendingTTL = 0 }, "PendingTTL"},
		{func(c *Config) { c.Signup.DefaultRole = " " }, "DefaultRole"},
		{func(c *Config) { c.PasswordReset.TicketTTL = 0 }, "TicketTTL"},
		{func(c *Config) { c.Store.RedisPrefix = "blog auth" }, "RedisPrefix"},
		{func(c *Config) { c.Audit.Enabled, c.Audit.BufferSize = true, 0 }, "BufferSize"},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("%02d_%s", i, tc.mention), func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("config accepted")
			}
			if !strings.Contains(err.Error(), tc.mention) {
				t.Fatalf("error %q does not name %q", err, tc.mention)
			}
		})
	}
}

func TestDefaultConfigRequiresSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without signing keys must not validate")
	}
	if cfg.Signup.PendingTTL != 300*time.Second || cfg.PasswordReset.TicketTTL != 300*time.Second {
		t.Fatalf("unexpected default ttls: %v %v", cfg.Signup.PendingTTL, cfg.PasswordReset.TicketTTL)
	}
}

func TestWithConfigClonesKeys(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)
	cfg.JWT.Access.PrivateKey[0] ^= 0xff
	if b.config.JWT.Access.PrivateKey[0] == cfg.JWT.Access.PrivateKey[0] {
		t.Fatal("builder must not alias caller key material")
	}
}
