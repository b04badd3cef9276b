package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const resetTicketVersionV1 = 1

// ErrResetTicketNotFound is returned for unknown, expired or consumed tickets.
var ErrResetTicketNotFound = errors.New("reset ticket not found")

// ResetTicket maps a reset token to the account it may change.
type ResetTicket struct {
	Email    string
	IssuedAt int64
}

// ResetTicketStore keys tickets by the SHA-256 digest of the token so raw
// tokens never appear in Redis.
type ResetTicketStore struct {
	secrets *SecretStore
}

func NewResetTicketStore(secrets *SecretStore) *ResetTicketStore {
	return &ResetTicketStore{secrets: secrets}
}

func resetTicketKey(tokenHash [32]byte) string {
	return "reset:" + hex.EncodeToString(tokenHash[:])
}

func (s *ResetTicketStore) Save(ctx context.Context, tokenHash [32]byte, ticket *ResetTicket, ttl time.Duration) error {
	encoded, err := encodeResetTicket(ticket)
	if err != nil {
		return err
	}
	return s.secrets.Set(ctx, resetTicketKey(tokenHash), encoded, ttl)
}

func (s *ResetTicketStore) Get(ctx context.Context, tokenHash [32]byte) (*ResetTicket, error) {
	data, err := s.secrets.Get(ctx, resetTicketKey(tokenHash))
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return nil, ErrResetTicketNotFound
		}
		return nil, err
	}

	ticket, err := decodeResetTicket(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ticket, nil
}

func (s *ResetTicketStore) Delete(ctx context.Context, tokenHash [32]byte) error {
	return s.secrets.Delete(ctx, resetTicketKey(tokenHash))
}

func encodeResetTicket(ticket *ResetTicket) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetTicketVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, ticket.IssuedAt); err != nil {
		return nil, err
	}
	if err := writeString(&buf, ticket.Email); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeResetTicket(data []byte) (*ResetTicket, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != resetTicketVersionV1 {
		return nil, errors.New("invalid reset ticket version")
	}

	ticket := &ResetTicket{}
	if err := binary.Read(reader, binary.BigEndian, &ticket.IssuedAt); err != nil {
		return nil, err
	}
	if ticket.Email, err = readString(reader); err != nil {
		return nil, err
	}
	if ticket.Email == "" {
		return nil, errors.New("reset ticket has no email")
	}

	return ticket, nil
}
