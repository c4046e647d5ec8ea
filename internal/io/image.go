package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

const jpegQuality = 90

// CoverOptions controls how cover art is prepared before it is embedded.
type CoverOptions struct {
	// Resize scales covers larger than MaxSize down to fit MaxSize x MaxSize.
	Resize  bool
	MaxSize int

	// ConvertToJPEG re-encodes the cover as JPEG.
	ConvertToJPEG bool
}

// ImageService prepares book cover art for ID3 tags.
//
// Example usage:
//
//	svc := NewImageService()
//	cover, mime, err := svc.PrepareCover(ctx, data, "image/png", CoverOptions{Resize: true, MaxSize: 500})
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// PrepareCover applies opts to a cover image and returns the new bytes and
// MIME type. With no option set the input is returned unchanged.
func (s *ImageService) PrepareCover(ctx context.Context, data []byte, mimeType string, opts CoverOptions) ([]byte, string, error) {
	switch {
	case opts.Resize && opts.MaxSize > 0:
		resized, err := s.ResizeImage(ctx, data, opts.MaxSize, opts.MaxSize)
		if err != nil {
			return nil, "", err
		}
		return resized, "image/jpeg", nil
	case opts.ConvertToJPEG:
		converted, err := s.ConvertToJPEG(ctx, data)
		if err != nil {
			return nil, "", err
		}
		return converted, "image/jpeg", nil
	default:
		return data, mimeType, nil
	}
}

// ResizeImage scales an image to fit within maxWidth x maxHeight, keeping
// its aspect ratio, and returns it JPEG-encoded. Smaller images keep their
// size but are still re-encoded.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ConvertToJPEG re-encodes an image as JPEG.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// height bound
		return max(1, int(float64(maxHeight)*ratio)), maxHeight
	}
	return maxWidth, max(1, int(float64(maxWidth)/ratio))
}
