// Package media validates captured payloads and derives the container format
// a provider needs from a MIME type.
package media

import (
	"fmt"
	"mime"
	"strings"
)

// ValidationError reports a payload that cannot be sent to a provider.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var imageTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
	"image/heif": "heif",
}

var audioTypes = map[string]string{
	"audio/webm":   "webm",
	"video/webm":   "webm",
	"audio/ogg":    "ogg",
	"audio/opus":   "ogg",
	"audio/mpeg":   "mp3",
	"audio/mp3":    "mp3",
	"audio/mp4":    "mp4",
	"audio/m4a":    "m4a",
	"audio/x-m4a":  "m4a",
	"audio/aac":    "aac",
	"audio/wav":    "wav",
	"audio/x-wav":  "wav",
	"audio/wave":   "wav",
	"audio/flac":   "flac",
	"audio/x-flac": "flac",
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".flac": "audio/flac",
}

// BaseType strips parameters and lowercases a MIME type:
// "audio/webm;codecs=opus" becomes "audio/webm".
func BaseType(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt, _, _ = strings.Cut(mimeType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// AudioFormat returns the container format for an audio MIME type.
func AudioFormat(mimeType string) (string, bool) {
	f, ok := audioTypes[BaseType(mimeType)]
	return f, ok
}

// ImageFormat returns the short format name for an image MIME type.
func ImageFormat(mimeType string) (string, bool) {
	f, ok := imageTypes[BaseType(mimeType)]
	return f, ok
}

// TypeByExtension maps a file extension (with the dot) to a supported MIME type.
func TypeByExtension(ext string) string {
	return extensionTypes[strings.ToLower(ext)]
}

func ValidateImage(data []byte, mimeType string, maxBytes int64) error {
	if _, ok := ImageFormat(mimeType); !ok {
		return &ValidationError{Field: "mimeType", Reason: fmt.Sprintf("unsupported image type %q", mimeType)}
	}
	return validateSize(data, maxBytes)
}

func ValidateAudio(data []byte, mimeType string, maxBytes int64) error {
	if _, ok := AudioFormat(mimeType); !ok {
		return &ValidationError{Field: "mimeType", Reason: fmt.Sprintf("unsupported audio type %q", mimeType)}
	}
	return validateSize(data, maxBytes)
}

func validateSize(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return &ValidationError{Field: "payload", Reason: "empty"}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return TooLarge(maxBytes)
	}
	return nil
}

func TooLarge(maxBytes int64) *ValidationError {
	return &ValidationError{Field: "payload", Reason: fmt.Sprintf("exceeds %d bytes", maxBytes)}
}
