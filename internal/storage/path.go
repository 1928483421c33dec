// Package storage keeps payment slip bytes outside the database.
package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
)

const slipRoot = "slips"

// maxExtLength bounds the extension kept from a caller supplied file name.
const maxExtLength = 10

var (
	ErrInvalidPath    = errors.New("storage: invalid path")
	ErrObjectNotFound = errors.New("storage: object not found")
)

// SlipSubdir is the directory holding every slip uploaded for an order.
func SlipSubdir(orderID uuid.UUID) string {
	return fmt.Sprintf("%s/order_%s", slipRoot, orderID)
}

// SanitizeFileName strips any directory part from a caller supplied name.
func SanitizeFileName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)

	if base == "" || base == "." || base == "/" {
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidSlipName)
	}
	if strings.Contains(base, "..") {
		return "", fmt.Errorf("%w: contains invalid traversal sequence", domain.ErrInvalidSlipName)
	}

	return base, nil
}

// ObjectName returns a fresh random name keeping the extension of fileName.
func ObjectName(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if len(ext) > maxExtLength || strings.ContainsAny(ext, " /\\") {
		ext = ""
	}
	return uuid.NewString() + ext
}

// JoinPath joins a subdirectory and file name after validating both.
func JoinPath(subdir, fileName string) (string, error) {
	var segments []string
	for _, segment := range strings.Split(strings.Trim(subdir, "/"), "/") {
		s, err := validateSegment("subdir", segment)
		if err != nil {
			return "", err
		}
		segments = append(segments, s)
	}

	name, err := validateSegment("fileName", fileName)
	if err != nil {
		return "", err
	}

	return path.Join(append(segments, name)...), nil
}

// ValidatePath checks a stored path before it is used to read or delete.
func ValidatePath(p string) error {
	if strings.TrimSpace(p) == "" || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, segment := range strings.Split(p, "/") {
		if _, err := validateSegment("path", segment); err != nil {
			return err
		}
	}
	return nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidPath, name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("%w: %s contains invalid path characters", ErrInvalidPath, name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("%w: %s contains invalid traversal sequence", ErrInvalidPath, name)
	}
	return value, nil
}
