package letter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const logoMaxWidth = 480

// Logo is a letterhead image normalized to PNG.
type Logo struct {
	PNG    []byte
	Width  int
	Height int
}

func LoadLogo(path string) (*Logo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read letterhead logo: %w", err)
	}
	return DecodeLogo(raw)
}

// DecodeLogo accepts png, jpeg or webp and scales wide images down so the
// embedded PDF stays small.
func DecodeLogo(raw []byte) (*Logo, error) {
	switch http.DetectContentType(raw) {
	case "image/png", "image/jpeg", "image/webp":
	default:
		return nil, errors.New("letterhead logo must be png, jpeg, or webp")
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, decodeErr := webp.Decode(bytes.NewReader(raw))
		if decodeErr != nil {
			return nil, errors.New("unable to decode letterhead logo")
		}
		img = decoded
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid letterhead logo dimensions")
	}
	if width > logoMaxWidth {
		height = height * logoMaxWidth / width
		if height < 1 {
			height = 1
		}
		width = logoMaxWidth
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, scaled); err != nil {
		return nil, fmt.Errorf("encode letterhead logo: %w", err)
	}
	return &Logo{PNG: out.Bytes(), Width: width, Height: height}, nil
}
