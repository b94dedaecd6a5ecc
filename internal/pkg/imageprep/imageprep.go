package imageprep

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "golang.org/x/image/webp" // register webp decoder
)

const (
	// MaxFileBytes caps a single uploaded photo at 10 MiB.
	MaxFileBytes = 10 * 1024 * 1024

	// maxDimension bounds the longer edge before the image is sent to the
	// vision models; anything larger just burns tokens.
	maxDimension = 2000

	jpegQuality = 85
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateImageBySniff checks the provided filename (extension) and the first
// bytes (head) against a whitelist of photo types. Returns detected mime or
// an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", errors.New("Invalid file type. Please upload JPEG, PNG, or WebP images.")
	}

	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", errors.New("Invalid file type: HTML content is not allowed")
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", errors.New("SVG/XML uploads are not supported")
	}

	// WebP sometimes sniffs as octet-stream depending on Go version; allow by extension
	if detected == "application/octet-stream" && allowedExt[ext] {
		return detected, nil
	}

	if allowedMime[detected] {
		return detected, nil
	}

	return "", errors.New("Invalid file type. Please upload JPEG, PNG, or WebP images.")
}

// Prepared is a normalized photo ready for the AI adapters: EXIF-oriented,
// capped in size, re-encoded as JPEG.
type Prepared struct {
	Base64 string
}

// DataURL renders the payload the multimodal API expects.
func (p Prepared) DataURL() string {
	return "data:image/jpeg;base64," + p.Base64
}

// Prepare decodes an uploaded photo, applies its EXIF orientation, downsizes
// it to at most maxDimension on the longer edge and re-encodes it as JPEG.
func Prepare(data []byte) (Prepared, error) {
	if len(data) == 0 {
		return Prepared{}, errors.New("imageprep: empty image data")
	}
	if len(data) > MaxFileBytes {
		return Prepared{}, fmt.Errorf("imageprep: image exceeds %d bytes", MaxFileBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Prepared{}, fmt.Errorf("imageprep: decode failed: %w", err)
	}

	img = applyOrientation(img, readOrientation(data))

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return Prepared{}, fmt.Errorf("imageprep: encode failed: %w", err)
	}

	return Prepared{Base64: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
}

// readOrientation returns the EXIF orientation value (1-8), or 1 when the
// image carries no usable EXIF block.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
