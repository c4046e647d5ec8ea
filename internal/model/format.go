package model

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when a file format cannot be stored as a
// single local file.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FileFormat is the closed set of formats the service delivers.
type FileFormat int

const (
	// FormatUnknown is any code not listed below.
	FormatUnknown FileFormat = iota

	// FormatMp3 is an MP3 audio book (code 0x016).
	FormatMp3

	// FormatEPub is an EPUB e-book (code 0x009).
	FormatEPub

	// FormatPdfDrm is a DRM protected PDF (code 0x00A).
	FormatPdfDrm

	// FormatPdfWatermark is a watermarked PDF (code 0x00B).
	FormatPdfWatermark

	// FormatStreamingHLS is an HLS stream (code 0x130). It has no single file.
	FormatStreamingHLS
)

// Wire codes of the formats.
const (
	CodeMp3          = 0x016
	CodeEPub         = 0x009
	CodePdfDrm       = 0x00A
	CodePdfWatermark = 0x00B
	CodeStreamingHLS = 0x130
)

// FormatFromCode maps a numeric format code to a FileFormat.
// Unlisted codes map to FormatUnknown.
func FormatFromCode(code int) FileFormat {
	switch code {
	case CodeMp3:
		return FormatMp3
	case CodeEPub:
		return FormatEPub
	case CodePdfDrm:
		return FormatPdfDrm
	case CodePdfWatermark:
		return FormatPdfWatermark
	case CodeStreamingHLS:
		return FormatStreamingHLS
	default:
		return FormatUnknown
	}
}

// Extension returns the file extension, without the dot, for formats that
// can be saved as a single file. Streaming and unknown formats return an
// error wrapping ErrUnsupportedFormat.
func (f FileFormat) Extension() (string, error) {
	switch f {
	case FormatMp3:
		return "mp3", nil
	case FormatEPub:
		return "epub", nil
	case FormatPdfDrm, FormatPdfWatermark:
		return "pdf", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// IsAudio reports whether files of this format carry ID3 metadata.
func (f FileFormat) IsAudio() bool {
	return f == FormatMp3
}

func (f FileFormat) String() string {
	switch f {
	case FormatMp3:
		return "mp3"
	case FormatEPub:
		return "epub"
	case FormatPdfDrm:
		return "pdf-drm"
	case FormatPdfWatermark:
		return "pdf-watermark"
	case FormatStreamingHLS:
		return "hls"
	default:
		return "unknown"
	}
}
