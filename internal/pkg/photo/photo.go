package photo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"

	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

const (
	// ThumbnailSize is the width of a player roster thumbnail in pixels.
	ThumbnailSize = 256
	// MaxPhotoDimension caps the stored photo; larger uploads are downscaled.
	MaxPhotoDimension = 1600
)

// BaseDir returns the root directory for stored player photos.
func BaseDir() string {
	return env.GetEnv("PHOTO_STORAGE_PATH", "./uploads/photos")
}

// Paths returns the stored photo and thumbnail path for a player UUID.
func Paths(playerUUID string) (photoPath, thumbPath string) {
	photoPath = filepath.Join(BaseDir(), playerUUID+".jpg")
	thumbPath = filepath.Join(BaseDir(), "thumbs", playerUUID+".jpg")
	return photoPath, thumbPath
}

// Process normalizes an uploaded player photo: downscales oversized images,
// re-encodes to JPEG and writes a roster thumbnail next to it. It returns the
// stored photo and thumbnail paths.
func Process(uploadPath, playerUUID string) (string, string, error) {
	img, err := imaging.Open(uploadPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded photo: %w", err)
	}

	if img.Bounds().Dx() > MaxPhotoDimension {
		img = imaging.Resize(img, MaxPhotoDimension, 0, imaging.Lanczos)
	}

	photoPath, thumbPath := Paths(playerUUID)
	if err := os.MkdirAll(filepath.Dir(photoPath), 0o755); err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0o755); err != nil {
		return "", "", err
	}

	if err := imaging.Save(img, photoPath, imaging.JPEGQuality(90)); err != nil {
		return "", "", fmt.Errorf("failed to save photo: %w", err)
	}

	thumb := imaging.Resize(img, ThumbnailSize, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(85)); err != nil {
		// Photo is stored; a missing thumbnail is recoverable.
		log.Warnf("[Photo] Failed to save thumbnail for %s: %v", playerUUID, err)
		return photoPath, "", nil
	}

	return photoPath, thumbPath, nil
}

// Remove deletes a player's stored photo and thumbnail.
func Remove(playerUUID string) {
	photoPath, thumbPath := Paths(playerUUID)
	for _, p := range []string{photoPath, thumbPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warnf("[Photo] Failed to remove %s: %v", p, err)
		}
	}
}

// AllowedUpload reports whether the uploaded file name has a supported image
// extension.
func AllowedUpload(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
