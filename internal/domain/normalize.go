package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrInvalidDomain is returned when a submitted domain cannot be audited.
var ErrInvalidDomain = errors.New("invalid domain format")

// NormalizeDomain turns user input such as "HTTPS://www.Example.com/about/"
// into a bare host name ("www.example.com"). The host must have a
// registrable name under a public suffix; bare suffixes ("co.uk") and single
// labels ("localhost") are rejected.
func NormalizeDomain(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", ErrInvalidDomain
	}

	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" || !strings.Contains(host, ".") || strings.ContainsAny(host, " _") {
		return "", ErrInvalidDomain
	}

	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}

	return host, nil
}
