package form

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrEmptyPhoto    = errors.New("photo is empty")
	ErrPhotoTooLarge = errors.New("photo is too large")
	ErrNotImage      = errors.New("file is not an image")
)

// EncodeDataURL reads an image from r and returns it as an inline data URL.
// The media type is sniffed from the content, never taken from the client.
func EncodeDataURL(r io.Reader, maxBytes int64) (string, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyPhoto
	}
	if n > maxBytes {
		return "", ErrPhotoTooLarge
	}

	data := buf.Bytes()
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", ErrNotImage
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
