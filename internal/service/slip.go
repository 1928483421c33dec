package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/storage"
)

// preparedSlip is a validated upload ready to be stored.
type preparedSlip struct {
	fileName    string
	contentType string
	checksum    string
	data        []byte
}

func (b base) prepareSlip(upload *domain.SlipUpload) (preparedSlip, error) {
	if upload == nil || len(upload.Data) == 0 {
		return preparedSlip{}, domain.ErrSlipRequired
	}

	if int64(len(upload.Data)) > b.maxSlipBytes {
		return preparedSlip{}, fmt.Errorf("%w: %d bytes, limit %d", domain.ErrSlipTooLarge, len(upload.Data), b.maxSlipBytes)
	}

	fileName, err := storage.SanitizeFileName(upload.FileName)
	if err != nil {
		return preparedSlip{}, err
	}

	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" {
		contentType = http.DetectContentType(upload.Data)
	}

	sum := sha256.Sum256(upload.Data)

	return preparedSlip{
		fileName:    fileName,
		contentType: contentType,
		checksum:    hex.EncodeToString(sum[:]),
		data:        upload.Data,
	}, nil
}

// storeSlip writes the bytes and returns the unsaved record pointing at them.
func (b base) storeSlip(ctx context.Context, orderID uuid.UUID, p preparedSlip) (domain.Slip, error) {
	path, err := b.blobs.Store(ctx, storage.SlipSubdir(orderID), storage.ObjectName(p.fileName), p.contentType, p.data)
	if err != nil {
		return domain.Slip{}, fmt.Errorf("blobs.Store: %w", err)
	}

	return domain.Slip{
		OrderID:       orderID,
		PaymentStatus: domain.PaymentStatusPending,
		FileName:      p.fileName,
		FilePath:      path,
		ContentType:   p.contentType,
		Size:          int64(len(p.data)),
		Checksum:      p.checksum,
	}, nil
}
