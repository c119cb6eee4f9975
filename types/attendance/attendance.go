package attendance

import "eventpilot/types"

type MarkRequest struct {
	RegistrationID string `json:"registrationId" validate:"required"`
	Attended       *bool  `json:"attended"`
}

func (r MarkRequest) Validate() error {
	return types.ValidateStruct(r)
}

// IsAttended defaults to true.
func (r MarkRequest) IsAttended() bool {
	return r.Attended == nil || *r.Attended
}

// MarkQRRequest carries the scanned QR text and the session being checked in.
type MarkQRRequest struct {
	QRData    string `json:"qrData" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
}

func (r MarkQRRequest) Validate() error {
	return types.ValidateStruct(r)
}

type Stats struct {
	Total       int     `json:"total"`
	Attended    int     `json:"attended"`
	NotAttended int     `json:"notAttended"`
	Rate        float64 `json:"rate"`
}
