package validation

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// URLValidator checks the provider endpoint and the image URLs that come
// back from it before they are fetched or handed to an external viewer.
type URLValidator struct {
	// AllowLocalhost determines if localhost URLs are permitted
	AllowLocalhost bool
	// AllowPrivateIPs determines if private IP addresses are permitted
	AllowPrivateIPs bool
	// AllowInsecure permits plain http
	AllowInsecure bool
	MaxLength     int
}

// NewURLValidator creates a validator with secure defaults
func NewURLValidator() *URLValidator {
	return &URLValidator{
		MaxLength: 2048,
	}
}

// NewPermissiveURLValidator allows local endpoints, for development and tests.
func NewPermissiveURLValidator() *URLValidator {
	return &URLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		AllowInsecure:   true,
		MaxLength:       2048,
	}
}

// ValidateAndNormalize validates a URL and returns the normalized version.
// A missing scheme defaults to https.
func (v *URLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}

	lower := strings.ToLower(input)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(lower, "://") {
			return "", fmt.Errorf("URL must use http or https protocol")
		}
		input = "https://" + input
	}

	u, err := v.parse(input)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ValidateImageURL checks a URL exactly as received. Unlike
// ValidateAndNormalize it never rewrites the input.
func (v *URLValidator) ValidateImageURL(input string) error {
	if strings.TrimSpace(input) != input || input == "" {
		return fmt.Errorf("invalid image URL %q", input)
	}
	_, err := v.parse(input)
	return err
}

func (v *URLValidator) parse(input string) (*url.URL, error) {
	if v.MaxLength > 0 && len(input) > v.MaxLength {
		return nil, fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return nil, fmt.Errorf("URL contains invalid characters")
	}

	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !v.AllowInsecure {
			return nil, fmt.Errorf("URL must use https")
		}
	default:
		return nil, fmt.Errorf("URL must use http or https protocol")
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL must have a valid hostname")
	}
	if u.User != nil {
		return nil, fmt.Errorf("URL must not carry credentials")
	}
	if err := v.validateHost(u.Hostname()); err != nil {
		return nil, err
	}
	if strings.Contains(u.Path, "..") {
		return nil, fmt.Errorf("directory traversal patterns not allowed in URL path")
	}

	return u, nil
}

func (v *URLValidator) validateHost(hostname string) error {
	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}
	if !v.AllowPrivateIPs {
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not permitted")
		}
	}
	if hostname == "0.0.0.0" || hostname == "255.255.255.255" {
		return fmt.Errorf("suspicious hostname detected")
	}
	return nil
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "::1" ||
		strings.HasPrefix(hostname, "127.") ||
		strings.HasSuffix(hostname, ".localhost")
}

func isPrivateIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return false
	}
	addr = addr.Unmap()
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}
