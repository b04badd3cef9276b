// Package username derives login handles from display names and resolves
// collisions against an existence check.
package username

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMaxBaseLength = 20
	DefaultMaxSuffix     = 1000
	DefaultFallback      = "user"
)

// ErrExhausted is returned when every candidate up to the suffix limit is taken.
var ErrExhausted = errors.New("no free username candidate")

// ExistsFunc reports whether a username is already taken.
type ExistsFunc func(ctx context.Context, username string) (bool, error)

// Policy bounds how candidates are built.
type Policy struct {
	MaxBaseLength int
	MaxSuffix     int
	Fallback      string
}

func (p Policy) withDefaults() Policy {
	if p.MaxBaseLength <= 0 {
		p.MaxBaseLength = DefaultMaxBaseLength
	}
	if p.MaxSuffix <= 0 {
		p.MaxSuffix = DefaultMaxSuffix
	}
	if p.Fallback == "" {
		p.Fallback = DefaultFallback
	}
	return p
}

// Base folds name to lowercase ASCII letters and digits. "Zoë Ann-Marie"
// becomes "zoeannmarie".
func (p Policy) Base(name string) string {
	p = p.withDefaults()

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == p.MaxBaseLength {
				break
			}
		}
	}
	if b.Len() == 0 {
		return p.Fallback
	}
	return b.String()
}

// Candidate returns the n-th candidate for base: base itself for n == 0,
// then base1, base2, and so on.
func Candidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n)
}

// Resolve walks the candidates for name in order and returns the first one
// exists reports as free.
func (p Policy) Resolve(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	p = p.withDefaults()
	base := p.Base(name)

	for n := 0; n <= p.MaxSuffix; n++ {
		candidate := Candidate(base, n)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}
