package blogauth

import (
	"errors"
	"log/slog"
	"time"

	internalflows "github.com/MrEthical07/blogauth/internal/flows"
	"github.com/MrEthical07/blogauth/internal/stores"
	"github.com/MrEthical07/blogauth/internal/username"
	"github.com/MrEthical07/blogauth/jwt"
	"github.com/MrEthical07/blogauth/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be used for exactly one Build.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	repo      IdentityRepository
	notifier  Notifier
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing pending signups and reset tickets.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithIdentityRepository(repo IdentityRepository) *Builder {
	b.repo = repo
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit destination. It only takes effect when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and collaborators and returns a ready
// Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.repo == nil {
		return nil, errors.New("identity repository required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- SECRET STORE --------
	secrets := stores.NewSecretStore(b.redis, cfg.Store.RedisPrefix)

	engine := &Engine{
		config:   cloneConfig(cfg),
		secrets:  secrets,
		pending:  stores.NewPendingSignupStore(secrets),
		tickets:  stores.NewResetTicketStore(secrets),
		repo:     b.repo,
		notifier: b.notifier,
		usernames: username.Policy{
			MaxBaseLength: cfg.Username.MaxBaseLength,
			MaxSuffix:     cfg.Username.MaxSuffix,
			Fallback:      cfg.Username.Fallback,
		},
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger.With("component", "blogauth"),
		now:     time.Now,
	}

	// -------- CREDENTIAL CODEC --------
	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	var legacy *password.Bcrypt
	if cfg.Password.LegacyBcrypt {
		legacy, err = password.NewBcrypt(cfg.Password.BcryptCost)
		if err != nil {
			return nil, err
		}
	}
	engine.codec = password.NewCodec(ph, legacy)

	// -------- TOKEN ISSUERS --------
	engine.access, err = newTokenManager(cfg.JWT, cfg.JWT.Access)
	if err != nil {
		return nil, err
	}
	engine.refresh, err = newTokenManager(cfg.JWT, cfg.JWT.Refresh)
	if err != nil {
		return nil, err
	}

	engine.flows = internalflows.New(engine.flowDeps())

	b.built = true

	return engine, nil
}

func newTokenManager(shared JWTConfig, tc TokenConfig) (*jwt.Manager, error) {
	return jwt.NewManager(jwt.Config{
		TTL:           tc.TTL,
		SigningMethod: jwt.SigningMethod(tc.SigningMethod),
		PrivateKey:    cloneBytes(tc.PrivateKey),
		PublicKey:     cloneBytes(tc.PublicKey),
		Issuer:        shared.Issuer,
		Audience:      shared.Audience,
		Leeway:        shared.Leeway,
		RequireIAT:    true,
		MaxFutureIAT:  shared.MaxFutureIAT,
	})
}
