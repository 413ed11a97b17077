package yourls

import (
	"errors"
	"net/url"
	"strings"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
)

const (
	MaxURLLength     = 2048
	MaxKeywordLength = 64
)

// Request is one shorten call. Keyword is optional.
type Request struct {
	LongURL string
	Keyword string
}

// Validate checks that LongURL is an absolute http(s) URL and that the
// keyword, when present, uses only URL-safe characters.
func (r Request) Validate() error {
	const op = "yourls.Request.Validate"

	if err := validateURL(r.LongURL); err != nil {
		return errx.E(op, errx.Invalid, err)
	}
	if r.Keyword != "" {
		if err := validateKeyword(r.Keyword); err != nil {
			return errx.E(op, errx.Invalid, err)
		}
	}
	return nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsed.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}

func validateKeyword(keyword string) error {
	if len(keyword) > MaxKeywordLength {
		return errors.New("keyword too long (maximum 64 characters)")
	}
	if strings.HasPrefix(keyword, "-") || strings.HasSuffix(keyword, "-") {
		return errors.New("keyword cannot start or end with a dash")
	}
	for _, c := range keyword {
		if !isKeywordChar(c) {
			return errors.New("keyword contains invalid characters (only letters, digits and dashes allowed)")
		}
	}
	return nil
}

func isKeywordChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-':
		return true
	default:
		return false
	}
}

// DomainOf returns the authority of rawURL, used as the statistics key.
// It is the third slash-separated segment of an absolute URL; inputs
// without a scheme fall back to URL parsing, and "unknown" is returned
// when no host can be found.
func DomainOf(rawURL string) string {
	parts := strings.SplitN(rawURL, "/", 4)
	if len(parts) >= 3 && strings.HasSuffix(parts[0], ":") && parts[1] == "" && parts[2] != "" {
		return parts[2]
	}

	candidate := rawURL
	if !strings.Contains(candidate, "://") {
		candidate = "//" + strings.TrimPrefix(candidate, "//")
	}
	if u, err := url.Parse(candidate); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown"
}
