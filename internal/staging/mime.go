package staging

import (
	"mime"
	"net/http"
	"strings"
)

// unknownContent is what http.DetectContentType reports for binary data it
// has no signature for.
const unknownContent = "application/octet-stream"

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// imageMediaType decides the media type of a candidate. Content wins when it
// can be sniffed; only content with no known signature falls back to what the
// caller declared. The second result is false for anything that is not an
// image.
func imageMediaType(data []byte, declared string) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	if len(data) == 0 {
		return "", false
	}

	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, true
	}
	if sniffed != unknownContent {
		return "", false
	}

	mt, _, err := mime.ParseMediaType(declared)
	if err == nil && strings.HasPrefix(mt, "image/") {
		return mt, true
	}
	return "", false
}
