package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// ImageStore persists uploaded receipt images on the local filesystem and
// reads them back by reference. References are bare filenames within the base
// directory; anything that would escape it is rejected.
type ImageStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewImageStore creates an image store rooted at baseDir.
func NewImageStore(baseDir string, logger *zap.Logger) (*ImageStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &ImageStore{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// SaveImage writes uploaded image bytes under a unique reference derived from
// the original filename and returns that reference.
func (s *ImageStore) SaveImage(filename string, content []byte) (string, error) {
	ref := uuid.NewString() + "_" + sanitizeFilename(filename)
	fullPath := filepath.Join(s.baseDir, ref)

	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write image",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	s.logger.Debug("Image saved",
		zap.String("image_ref", ref),
		zap.Int("size", len(content)))
	return ref, nil
}

// ReadImage returns the raw bytes stored under ref.
func (s *ImageStore) ReadImage(ref string) ([]byte, error) {
	fullPath := filepath.Join(s.baseDir, ref)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return content, nil
}

// validatePath checks that the path is safe and within baseDir
func (s *ImageStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// sanitizeFilename strips path components and characters unsafe in a stored
// reference, keeping the original extension so decoding can dispatch on it.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	base = unsafeNameChars.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == ".." {
		return "upload"
	}
	return base
}
