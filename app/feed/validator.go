package feed

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	guidPattern  = regexp.MustCompile(`^https?://[^/\s]+/[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(Z|[+-]\d{2}:\d{2})$`)
	namePattern  = regexp.MustCompile(`^\p{L}+([ -]\p{L}+)*$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)
	uriPattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:\S+$`)
)

const maxNameLength = 64

var imageTypes = []string{"image/gif", "image/jpeg", "image/jpg", "image/bmp", "image/png"}

// IsValidGuid reports whether s is an http(s) URI whose path is an RFC 4122 UUID.
func IsValidGuid(s string) bool {
	return guidPattern.MatchString(s)
}

// IsValidDate reports whether s is an RFC 3339 timestamp with second precision.
func IsValidDate(s string) bool {
	return datePattern.MatchString(s)
}

// IsValidPersonName reports whether s is letters-only words joined by single
// spaces or hyphens, at most 64 characters long.
func IsValidPersonName(s string) bool {
	return utf8.RuneCountInString(s) <= maxNameLength && namePattern.MatchString(s)
}

func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidURI reports whether s is an absolute URI.
func IsValidURI(s string) bool {
	return uriPattern.MatchString(s)
}

// IsValidImageType reports whether s is one of the image MIME types an item
// may carry. Case is ignored.
func IsValidImageType(s string) bool {
	for _, t := range imageTypes {
		if strings.EqualFold(s, t) {
			return true
		}
	}
	return false
}
