// Package validate holds input validation shared by the HTTP handlers and the
// playback controller: URL-shape checks for video locators, length limits for
// identity fields, and the bounded numeric parser used for volume input.
package validate

import (
	"net/url"
	"strconv"
	"strings"

	"watchparty-svc/internal/domain"
)

// Text field length limits — single source of truth for all callers.
const (
	MaxLocatorLength  = 2048
	MaxUsernameLength = 64
	MaxAvatarLength   = 256
	MaxUserIDLength   = 64
	MaxChatLength     = 2000
)

// Locator checks that s looks like a playable video URL: http or https,
// non-empty host, within the length cap. It reports the shared validation
// errors so handlers can surface them inline.
func Locator(s string) error {
	if s == "" {
		return domain.ErrInvalidLocator
	}
	if len(s) > MaxLocatorLength {
		return domain.ErrOversizedInput
	}
	u, err := url.Parse(s)
	if err != nil {
		return domain.ErrInvalidLocator
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.ErrInvalidLocator
	}
	if u.Host == "" {
		return domain.ErrInvalidLocator
	}
	return nil
}

// Identity trims an OAuth redirect parameter to max runes. Values arrive
// url-decoded; anything longer than the configured maximum is cut, not
// rejected, since the collaborator promises sanitized lengths.
func Identity(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}

// ChatText rejects empty or oversized chat messages.
func ChatText(s string) error {
	if strings.TrimSpace(s) == "" {
		return domain.ErrEmptyMessage
	}
	if len(s) > MaxChatLength {
		return domain.ErrOversizedInput
	}
	return nil
}

// ClampNumber parses raw as a real number and clamps it into [min, max].
// Unparsable input yields min. Used for volume and any other bounded
// numeric input.
func ClampNumber(raw string, min, max float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return min
	}
	return Clamp(v, min, max)
}

// Clamp clamps v into [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
