package ai

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	MaxImages     = 5
	MaxImageBytes = 5 * 1024 * 1024
)

var ErrInvalidImage = errors.New("invalid image")

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ValidateImages checks that every entry is a base64 data URL of a supported type and size.
func ValidateImages(images []string) error {
	if len(images) > MaxImages {
		return fmt.Errorf("%w: at most %d images per message", ErrInvalidImage, MaxImages)
	}
	for i, img := range images {
		if err := validateImage(img); err != nil {
			return fmt.Errorf("%w: image %d: %v", ErrInvalidImage, i+1, err)
		}
	}
	return nil
}

func validateImage(dataURL string) error {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return errors.New("must be a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return errors.New("missing data")
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return errors.New("must be base64 encoded")
	}
	if _, ok := allowedImageTypes[strings.ToLower(mime)]; !ok {
		return fmt.Errorf("unsupported type %q", mime)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return errors.New("exceeds 5MB")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return errors.New("invalid base64")
	}
	if len(raw) == 0 {
		return errors.New("empty image")
	}
	if len(raw) > MaxImageBytes {
		return errors.New("exceeds 5MB")
	}
	return nil
}
