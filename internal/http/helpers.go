package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"keuangan/internal/form"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// humanBytes renders a byte limit the way the form copy states it.
func humanBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// photoError maps a failed upload to a status and a user-facing message.
func photoError(err error, limit int64) (int, string) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig), errors.Is(err, form.ErrPhotoTooLarge):
		return http.StatusRequestEntityTooLarge, "Photo must be at most " + humanBytes(limit) + "."
	case errors.Is(err, form.ErrNotImage):
		return http.StatusUnprocessableEntity, "That file is not an image."
	case errors.Is(err, form.ErrEmptyPhoto), errors.Is(err, http.ErrMissingFile):
		return http.StatusUnprocessableEntity, "Please choose a photo."
	default:
		return http.StatusBadRequest, "The photo could not be read."
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
