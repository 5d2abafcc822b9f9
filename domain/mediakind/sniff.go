// Package mediakind classifies inbound media payloads from their leading
// bytes. Declared content types are used as a hint only, never trusted alone.
package mediakind

import (
	"strings"

	"fanshub-chat/domain"

	"github.com/gabriel-vasile/mimetype"
)

type MIME string

const (
	Unknown      MIME = "unknown"
	ImageJPEG    MIME = "image/jpeg"
	ImagePNG     MIME = "image/png"
	ImageGIF     MIME = "image/gif"
	VideoGeneric MIME = "video/generic"
)

// SniffWindow is how much of the payload is handed to signature detection.
// Signatures of interest sit in the first 12 bytes, the rest is headroom.
const SniffWindow = 512

// Sniff classifies a payload from its leading bytes and a declared
// content-type hint:
//
//	FF D8 FF                -> image/jpeg
//	89 50 4E 47 0D 0A 1A 0A -> image/png
//	GIF87a / GIF89a         -> image/gif
//	video container bytes, or a declared "video/*" hint -> video/generic
//	anything else           -> unknown
//
// The image signatures are contract: a payload matching one of them must
// classify that way regardless of what the client declared.
func Sniff(head []byte, declaredType string) MIME {
	if len(head) > SniffWindow {
		head = head[:SniffWindow]
	}
	detected := mimetype.Detect(head)
	switch {
	case detected.Is(string(ImageJPEG)):
		return ImageJPEG
	case detected.Is(string(ImagePNG)):
		return ImagePNG
	case detected.Is(string(ImageGIF)):
		return ImageGIF
	case strings.HasPrefix(detected.String(), "video/"):
		return VideoGeneric
	case strings.HasPrefix(strings.TrimSpace(declaredType), "video/"):
		// Shallow container scan: if the bytes say nothing we still accept
		// the client's word for video, as a hint rather than a signature.
		return VideoGeneric
	default:
		return Unknown
	}
}

// Kind maps a detection onto the stored media family.
// The second return is false for Unknown, which callers must drop.
func (m MIME) Kind() (domain.MediaKind, bool) {
	switch m {
	case ImageJPEG, ImagePNG, ImageGIF:
		return domain.MediaKindImage, true
	case VideoGeneric:
		return domain.MediaKindVideo, true
	default:
		return "", false
	}
}

// Ext picks the file extension for the stored blob.
// The extension derives from the detection alone, never from the client.
func (m MIME) Ext() string {
	switch m {
	case ImageJPEG:
		return ".jpg"
	case ImagePNG:
		return ".png"
	case ImageGIF:
		return ".gif"
	case VideoGeneric:
		return ".mp4"
	default:
		return ""
	}
}
