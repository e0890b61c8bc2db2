// Package badge encodes and decodes the credential printed on event badges.
//
// A payload has the form
//
//	v1.<base64url(JSON{identity_id, event_id, badge_id})>.<base64url(HMAC-SHA256)>
//
// The MAC covers the version prefix and the body. Decoding fails closed on
// any deviation from that shape.
package badge

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	Version1 = "v1"

	// maxPayloadLen bounds work done on scanner input before any parsing.
	maxPayloadLen = 512
)

var (
	ErrMalformedPayload   = errors.New("malformed badge payload")
	ErrUnsupportedVersion = errors.New("unsupported badge payload version")
	ErrBadSignature       = errors.New("badge payload signature mismatch")
)

// Payload is the triple encoded on a badge. It stays stable for the
// lifetime of an enrollment.
type Payload struct {
	IdentityID uint      `json:"identity_id"`
	EventID    uint      `json:"event_id"`
	BadgeID    uuid.UUID `json:"badge_id"`
}

func (p Payload) validate() error {
	if p.IdentityID == 0 || p.EventID == 0 || p.BadgeID == uuid.Nil {
		return ErrMalformedPayload
	}
	return nil
}

type Codec struct {
	key []byte
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("badge key must be at least 32 bytes, got %d", len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{key: k}, nil
}

func (c *Codec) Encode(p Payload) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal badge payload: %w", err)
	}
	signed := Version1 + "." + base64.RawURLEncoding.EncodeToString(raw)
	return signed + "." + base64.RawURLEncoding.EncodeToString(c.mac(signed)), nil
}

// Decode validates and parses a scanned payload. Every failure wraps one of
// the package's sentinel errors.
func (c *Codec) Decode(s string) (Payload, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxPayloadLen {
		return Payload{}, ErrMalformedPayload
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Payload{}, ErrMalformedPayload
	}
	if parts[0] != Version1 {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, parts[0])
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Payload{}, ErrMalformedPayload
	}
	if !hmac.Equal(sig, c.mac(parts[0]+"."+parts[1])) {
		return Payload{}, ErrBadSignature
	}

	body, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Payload{}, ErrMalformedPayload
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if dec.More() {
		return Payload{}, ErrMalformedPayload
	}
	if err := p.validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// IsInvalid reports whether err came from payload decoding rather than
// from infrastructure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrBadSignature)
}

func (c *Codec) mac(msg string) []byte {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(msg))
	return h.Sum(nil)
}
