package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const pendingSignupVersionV1 = 1

// ErrPendingSignupNotFound is returned when no signup awaits verification for an email.
var ErrPendingSignupNotFound = errors.New("pending signup not found")

// PendingSignup is a signup that has not yet proven ownership of its email.
type PendingSignup struct {
	Email        string
	Name         string
	PasswordHash string
	OTP          string
	CreatedAt    int64
}

type PendingSignupStore struct {
	secrets *SecretStore
}

func NewPendingSignupStore(secrets *SecretStore) *PendingSignupStore {
	return &PendingSignupStore{secrets: secrets}
}

func pendingSignupKey(email string) string {
	return "signup:" + email
}

// Save writes record keyed by its email, replacing any earlier pending signup.
func (s *PendingSignupStore) Save(ctx context.Context, record *PendingSignup, ttl time.Duration) error {
	encoded, err := encodePendingSignup(record)
	if err != nil {
		return err
	}
	return s.secrets.Set(ctx, pendingSignupKey(record.Email), encoded, ttl)
}

func (s *PendingSignupStore) Get(ctx context.Context, email string) (*PendingSignup, error) {
	data, err := s.secrets.Get(ctx, pendingSignupKey(email))
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return nil, ErrPendingSignupNotFound
		}
		return nil, err
	}

	record, err := decodePendingSignup(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return record, nil
}

func (s *PendingSignupStore) Delete(ctx context.Context, email string) error {
	return s.secrets.Delete(ctx, pendingSignupKey(email))
}

func encodePendingSignup(record *PendingSignup) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(pendingSignupVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	for _, field := range []string{record.Email, record.Name, record.PasswordHash, record.OTP} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodePendingSignup(data []byte) (*PendingSignup, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pendingSignupVersionV1 {
		return nil, errors.New("invalid pending signup version")
	}

	record := &PendingSignup{}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	for _, field := range []*string{&record.Email, &record.Name, &record.PasswordHash, &record.OTP} {
		if *field, err = readString(reader); err != nil {
			return nil, err
		}
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in pending signup")
	}

	return record, nil
}
