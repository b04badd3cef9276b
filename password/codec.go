package password

import "strings"

// Hasher is implemented by every hashing scheme in this package.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Codec hashes with argon2id and verifies either argon2id or legacy bcrypt
// hashes, choosing the scheme from the hash prefix.
type Codec struct {
	primary *Argon2
	legacy  *Bcrypt
}

// NewCodec builds a Codec. legacy may be nil, in which case bcrypt hashes are
// rejected as ErrUnknownScheme.
func NewCodec(primary *Argon2, legacy *Bcrypt) *Codec {
	return &Codec{primary: primary, legacy: legacy}
}

// Hash always produces an argon2id hash.
func (c *Codec) Hash(password string) (string, error) {
	return c.primary.Hash(password)
}

func (c *Codec) Verify(password string, encodedHash string) (bool, error) {
	h, err := c.scheme(encodedHash)
	if err != nil {
		return false, err
	}
	return h.Verify(password, encodedHash)
}

// NeedsUpgrade is true for every legacy hash and for argon2id hashes with
// weaker parameters than the primary configuration.
func (c *Codec) NeedsUpgrade(encodedHash string) (bool, error) {
	if isBcryptHash(encodedHash) {
		if c.legacy == nil {
			return false, ErrUnknownScheme
		}
		return true, nil
	}
	return c.primary.NeedsUpgrade(encodedHash)
}

func (c *Codec) scheme(encodedHash string) (Hasher, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return c.primary, nil
	case isBcryptHash(encodedHash) && c.legacy != nil:
		return c.legacy, nil
	default:
		return nil, ErrUnknownScheme
	}
}
