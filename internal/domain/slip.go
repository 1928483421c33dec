package domain

import (
	"time"

	"github.com/google/uuid"
)

type Slip struct {
	ID      uuid.UUID
	OrderID uuid.UUID
	// PaymentStatus is the payment status the slip is currently linked to.
	PaymentStatus PaymentStatus
	FileName      string
	FilePath      string
	ContentType   string
	Size          int64
	Checksum      string
	UploadedAt    time.Time
	Verified      bool
	VerifiedAt    *time.Time
}

// SlipUpload carries the raw payment-proof file supplied by a caller.
type SlipUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}
