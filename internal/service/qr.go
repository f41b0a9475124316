package service

import (
	"encoding/json"
	"strings"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

// ParseQRPayload decodes the JSON text scanned off an ID card. The school ID
// and admission number are required; anything malformed is rejected with a
// validation error.
func ParseQRPayload(raw string) (*models.QRPayload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty scan")
	}
	var payload models.QRPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unrecognised QR code")
	}
	if payload.SchoolID == "" || payload.AdmissionNo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "QR code is missing identity fields")
	}
	return &payload, nil
}
