package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	argon2Prefix = "$argon2id$"
	paramsFormat = "m=%d,t=%d,p=%d"

	// DefaultMaxPasswordBytes caps the input length when Config leaves it unset.
	DefaultMaxPasswordBytes = 1024
)

// PHC strings carry salt and key in unpadded standard base64.
var phcEncoding = base64.RawStdEncoding

// Config holds the argon2id cost parameters used for new hashes.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,

		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

// Validate checks the configured costs against the package minimums.
func (cfg Config) Validate() error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return fmt.Errorf("password time must be >= %d", minTimeCost)
	case cfg.Parallelism < minParallelism:
		return fmt.Errorf("password parallelism must be >= %d", minParallelism)
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	case cfg.MaxPasswordBytes < 0:
		return fmt.Errorf("password max bytes must be >= 0")
	}
	return nil
}

// costs are the parameters recorded in an encoded hash.
type costs struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func (c costs) weakerThan(o costs) bool {
	return c.memory < o.memory || c.time < o.time || c.parallelism < o.parallelism
}

type decodedHash struct {
	costs
	salt []byte
	key  []byte
}

// Argon2 hashes passwords into self-describing PHC strings of the form
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
type Argon2 struct {
	config Config
	costs  costs
}

// NewArgon2 validates cfg and returns a hasher bound to it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{
		config: cfg,
		costs:  costs{memory: cfg.Memory, time: cfg.Time, parallelism: cfg.Parallelism},
	}, nil
}

// Hash derives an argon2id key from password with a fresh random salt. The
// password bytes are used as given; no Unicode normalization is applied.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := a.derive(password, salt, a.costs, a.config.KeyLength)

	return fmt.Sprintf("%sv=%d$"+paramsFormat+"$%s$%s",
		argon2Prefix, argon2.Version,
		a.costs.memory, a.costs.time, a.costs.parallelism,
		phcEncoding.EncodeToString(salt),
		phcEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the costs embedded in encodedHash and
// compares in constant time. A candidate longer than MaxPasswordBytes could
// never have been hashed, so it is a plain mismatch.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, nil
	}
	d, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	key := a.derive(password, d.salt, d.costs, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker costs or
// a different key length than the current configuration.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	d, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	return d.weakerThan(a.costs) || uint32(len(d.key)) != a.config.KeyLength, nil
}

func (a *Argon2) derive(password string, salt []byte, c costs, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), salt, c.time, c.memory, c.parallelism, keyLen)
}

func decodeHash(encoded string) (*decodedHash, error) {
	rest, ok := strings.CutPrefix(encoded, argon2Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: not an argon2id hash", ErrMalformedHash)
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: want 4 fields after the prefix, got %d", ErrMalformedHash, len(fields))
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: bad version field", ErrMalformedHash)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	var d decodedHash
	_, err := fmt.Sscanf(fields[1], paramsFormat, &d.memory, &d.time, &d.parallelism)
	// the round trip rejects trailing junk and zero-padded numbers
	if err != nil || fmt.Sprintf(paramsFormat, d.memory, d.time, d.parallelism) != fields[1] {
		return nil, fmt.Errorf("%w: bad parameter field", ErrMalformedHash)
	}
	if d.memory < minMemoryKB || d.time < minTimeCost || d.parallelism < minParallelism {
		return nil, fmt.Errorf("%w: parameters below minimum", ErrMalformedHash)
	}

	salt, err := decodeSegment(fields[2])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	key, err := decodeSegment(fields[3])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: invalid key", ErrMalformedHash)
	}
	d.salt, d.key = salt, key
	return &d, nil
}

// decodeSegment also accepts padded base64 so hashes written by encoders
// that pad still verify.
func decodeSegment(s string) ([]byte, error) {
	return phcEncoding.DecodeString(strings.TrimRight(s, "="))
}
