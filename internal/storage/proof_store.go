// Package storage persists uploaded payment proof images on local disk.
// Files are renamed to a uuid so user-supplied names never touch the
// filesystem.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
)

// MaxProofSize caps payment proof uploads at 1MB.
const MaxProofSize = 1 << 20

type ProofStore struct {
	dir string
}

func NewProofStore(dir string) (*ProofStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create proof directory: %w", err)
	}
	return &ProofStore{dir: dir}, nil
}

// Save validates and writes one proof image, returning the stored path
// relative to the store root.
func (s *ProofStore) Save(_ context.Context, data []byte, originalName string) (string, error) {
	if len(data) == 0 {
		return "", &domain.ValidationError{Field: "file", Message: "file is empty"}
	}
	if len(data) > MaxProofSize {
		return "", &domain.ValidationError{Field: "file", Message: "file exceeds 1MB limit"}
	}

	ext, err := imageExtension(data)
	if err != nil {
		return "", err
	}

	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write proof file: %w", err)
	}
	return name, nil
}

// imageExtension sniffs the payload; only JPEG and PNG are accepted. The
// original filename is ignored, content decides.
func imageExtension(data []byte) (string, error) {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	default:
		return "", &domain.ValidationError{Field: "file", Message: "file must be a JPEG or PNG image"}
	}
}
