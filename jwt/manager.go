package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm of a Manager.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 key pair (EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC-SHA256 secret.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrIATInFuture is returned when a token's iat is beyond MaxFutureIAT.
	ErrIATInFuture = errors.New("token iat too far in the future")
	// ErrMissingIdentity is returned when a verified token carries no user id.
	ErrMissingIdentity = errors.New("token carries no identity")
)

// Config configures one token kind. Access and refresh tokens each get their
// own Manager, so they never share keys or lifetimes by accident.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Identity is the identity bound into every token.
type Identity struct {
	UserID string
	Role   string
	Email  string
}

// Claims is the signed payload. Access and refresh tokens share this shape.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the identity portion of the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role, Email: c.Email}
}

// Manager issues and verifies tokens of a single kind. Keys are decoded once
// in NewManager; Issue and Parse only read them.
type Manager struct {
	config Config
	now    func() time.Time

	method    jwt.SigningMethod
	signKey   any // nil for a verify-only ed25519 manager
	verifyKey any
	keyset    map[string]any
	parser    *jwt.Parser
}

var (
	errNoSigningKey = errors.New("manager has no signing key")
	errUnknownKID   = errors.New("unknown kid")
)

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.TTL <= 0:
		return nil, errors.New("invalid TTL configuration")
	case cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute:
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg, now: time.Now}
	if err := m.loadKeys(); err != nil {
		return nil, err
	}
	if cfg.KeyID != "" && m.keyset != nil {
		if _, ok := m.keyset[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(opts...)
	return m, nil
}

func (m *Manager) loadKeys() error {
	cfg := m.config
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return errors.New("hs256 requires a secret of at least 32 bytes")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey, m.verifyKey = cfg.PrivateKey, cfg.PrivateKey
		if len(cfg.VerifyKeys) > 0 {
			m.keyset = make(map[string]any, len(cfg.VerifyKeys))
			for kid, secret := range cfg.VerifyKeys {
				if strings.TrimSpace(kid) == "" {
					return errors.New("verify key map contains empty kid")
				}
				m.keyset[kid] = secret
			}
		}
		return nil

	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return err
			}
			m.verifyKey = pub
		}
		if len(cfg.VerifyKeys) == 0 && m.verifyKey == nil {
			return errors.New("ed25519 requires public key or verify key set")
		}
		if len(cfg.VerifyKeys) > 0 {
			m.keyset = make(map[string]any, len(cfg.VerifyKeys))
			for kid, raw := range cfg.VerifyKeys {
				if strings.TrimSpace(kid) == "" {
					return errors.New("verify key map contains empty kid")
				}
				pub, err := parseEdPublicKey(raw)
				if err != nil {
					return fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
				}
				m.keyset[kid] = pub
			}
		}
		return nil

	default:
		return errors.New("unsupported signing method")
	}
}

// TTL returns the lifetime of tokens issued by m.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue signs a new token for id, expiring after the configured TTL.
func (m *Manager) Issue(id Identity) (string, error) {
	if id.UserID == "" {
		return "", ErrMissingIdentity
	}
	if m.signKey == nil {
		return "", errNoSigningKey
	}

	now := m.now()
	rc := jwt.RegisteredClaims{
		Issuer:    m.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
	}
	if m.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method, Claims{
		UserID:           id.UserID,
		Role:             id.Role,
		Email:            id.Email,
		RegisteredClaims: rc,
	})
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.signKey)
}

// Parse verifies tokenStr and returns its claims. Any signature, algorithm,
// expiry, issuer or audience failure rejects the whole token.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, m.keyFor)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if iat := claims.IssuedAt; iat != nil && iat.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, ErrIATInFuture
	}
	if claims.UserID == "" {
		return nil, ErrMissingIdentity
	}
	return claims, nil
}

// keyFor picks the verification key for t. With a key set the kid header is
// mandatory; with only KeyID it must match.
func (m *Manager) keyFor(t *jwt.Token) (any, error) {
	if t.Method.Alg() != m.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	kid, _ := t.Header["kid"].(string)

	if m.keyset != nil {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.keyset[kid]
		if !ok {
			return nil, errUnknownKID
		}
		return key, nil
	}
	if m.config.KeyID != "" && kid != m.config.KeyID {
		return nil, errUnknownKID
	}
	return m.verifyKey, nil
}

// EdPublicKey returns the verification key of an Ed25519 key pair given as raw
// bytes or PEM. With no public key it is derived from the private key.
func EdPublicKey(private, public []byte) (ed25519.PublicKey, error) {
	if len(public) > 0 {
		return parseEdPublicKey(public)
	}
	priv, err := parseEdPrivateKey(private)
	if err != nil {
		return nil, err
	}
	return priv.Public().(ed25519.PublicKey), nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
