package qr

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const (
	PayloadType = "attendance"
	imageSize   = 200
)

var ErrInvalidPayload = errors.New("invalid QR payload")

// CheckIn is the JSON encoded in every registration's attendance QR.
type CheckIn struct {
	Type           string `json:"type"`
	RegistrationID string `json:"registrationId"`
	SessionID      string `json:"sessionId"`
}

func NewCheckIn(registrationID, sessionID string) CheckIn {
	return CheckIn{Type: PayloadType, RegistrationID: registrationID, SessionID: sessionID}
}

func (c CheckIn) Encode() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// ParseCheckIn accepts only attendance payloads with both ids set.
func ParseCheckIn(data string) (*CheckIn, error) {
	var c CheckIn
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if c.Type != PayloadType || c.RegistrationID == "" || c.SessionID == "" {
		return nil, ErrInvalidPayload
	}
	return &c, nil
}

// PNG renders data as a 200px QR image with low error correction.
func PNG(data string) ([]byte, error) {
	png, err := qrcode.Encode(data, qrcode.Low, imageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURL renders data as a base64 PNG data URL for inline use.
func DataURL(data string) (string, error) {
	png, err := PNG(data)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
