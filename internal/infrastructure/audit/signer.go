// Package audit implements the append-only security event pipeline: HMAC
// signing for tamper evidence, an async bounded-queue sink in front of the
// durable store, and an optional Kafka forwarder for SIEM consumption.
package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/courierd/courierd/internal/domain/models"
)

// signedPayload is the canonical byte layout covered by the signature.
// The signature field itself is excluded.
type signedPayload struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	KeyID     *string         `json:"key_id"`
	KeyHash   *string         `json:"key_hash"`
	IPAddress string          `json:"ip_address"`
	RequestID string          `json:"request_id"`
	Metadata  json.RawMessage `json:"metadata"`
	Message   string          `json:"message"`
	CreatedAt int64           `json:"created_at"`
}

// Signer computes HMAC-SHA256 signatures over security events so the stored
// trail is tamper-evident.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer with the given secret key.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("audit signing secret must not be empty")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the base64 HMAC-SHA256 signature of the event payload.
func (s *Signer) Sign(event *models.SecurityEvent) (string, error) {
	payload, err := json.Marshal(signedPayload{
		ID:        event.ID,
		EventType: string(event.EventType),
		KeyID:     event.KeyID,
		KeyHash:   event.KeyHash,
		IPAddress: event.IPAddress,
		RequestID: event.RequestID,
		Metadata:  event.Metadata,
		Message:   event.Message,
		CreatedAt: event.CreatedAt.UnixNano(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal event for signing: %w", err)
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether the event's stored signature matches its payload.
func (s *Signer) Verify(event *models.SecurityEvent) (bool, error) {
	expected, err := s.Sign(event)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(event.Signature)), nil
}
