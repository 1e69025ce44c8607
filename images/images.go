// Package images provides the raster image resources used as signatures.
//
// An Image keeps the original encoded bytes (JPEG or PNG) so that opaque JPEG
// data can be embedded into a PDF without re-encoding, together with the pixel
// dimensions needed for placement.
package images

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG format
	_ "image/png"  // register PNG format
	"net/url"
	"strings"
)

// ErrEmpty is returned when no image data was supplied.
var ErrEmpty = errors.New("empty image data")

// Image represents an image resource that can be placed on a PDF page.
type Image struct {
	Name   string // Identifier for the image
	Data   []byte // Raw image data (JPEG or PNG)
	Hash   string // SHA256 hash of image data for deduplication
	Format string // "jpeg" or "png"
	Width  int    // Width in pixels
	Height int    // Height in pixels
}

// Decode reads the image header to determine format and size. The pixel data
// itself is decoded lazily when the image is embedded.
func Decode(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image configuration: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}

	sum := sha256.Sum256(data)
	return &Image{
		Name:   name,
		Data:   data,
		Hash:   hex.EncodeToString(sum[:]),
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Pixels decodes the full image.
func (img *Image) Pixels() (image.Image, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, ErrEmpty
	}
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return src, nil
}

// Size returns the pixel dimensions as floats.
func (img *Image) Size() (float64, float64) {
	return float64(img.Width), float64(img.Height)
}

// IsDataURL reports whether s is an RFC 2397 data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL extracts the payload of a data URL such as the PNG exports
// produced by browser signature pads ("data:image/png;base64,...").
func ParseDataURL(s string) ([]byte, string, error) {
	if !IsDataURL(s) {
		return nil, "", fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL: missing comma")
	}

	mediaType := meta
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		mediaType = strings.TrimSuffix(meta, ";base64")
		isBase64 = true
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders strip the padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, "", fmt.Errorf("malformed data URL payload: %w", err)
			}
		}
		return data, mediaType, nil
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("malformed data URL payload: %w", err)
	}
	return []byte(unescaped), mediaType, nil
}

// FromDataURL decodes a data URL into an Image.
func FromDataURL(name, s string) (*Image, error) {
	data, _, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	return Decode(name, data)
}
