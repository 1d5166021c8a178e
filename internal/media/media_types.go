package media

import (
	_ "embed"
	"net/url"
	"path"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed media_types.toml
var mediaTypesTOML []byte

type Type int

const (
	TypeImage Type = iota
	TypePage
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypePage:
		return "page"
	default:
		return "unknown"
	}
}

type TypeConfig struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

type TypesConfig struct {
	Image     TypeConfig                `toml:"image"`
	Page      TypeConfig                `toml:"page"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
}

type PlatformConfig struct {
	DefaultOpener string `toml:"default_opener"`
}

type TypeDetector struct {
	config *TypesConfig
}

func NewTypeDetector() (*TypeDetector, error) {
	var config TypesConfig
	if err := toml.Unmarshal(mediaTypesTOML, &config); err != nil {
		return nil, err
	}

	return &TypeDetector{config: &config}, nil
}

func (d *TypeDetector) DetectType(rawURL string) Type {
	lower := strings.ToLower(rawURL)
	isURL := strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")

	// Extension of the path only, so query strings and fragments are ignored
	p := lower
	if u, err := url.Parse(lower); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")

	if ext != "" {
		if hasExtension(d.config.Image.Extensions, ext) {
			return TypeImage
		}
		if hasExtension(d.config.Page.Extensions, ext) {
			return TypePage
		}
	}

	if isURL {
		if matchesPattern(lower, d.config.Image.URLPatterns) {
			return TypeImage
		}
		if matchesPattern(lower, d.config.Page.URLPatterns) {
			return TypePage
		}
	}

	return TypeUnknown
}

func (d *TypeDetector) GetDefaultOpener() string {
	if platformConfig, ok := d.config.Platforms[runtime.GOOS]; ok {
		return platformConfig.DefaultOpener
	}
	if fallback, ok := d.config.Platforms["fallback"]; ok {
		return fallback.DefaultOpener
	}
	return "open"
}

func hasExtension(extensions []string, ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func matchesPattern(u string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(u, pattern) {
			return true
		}
	}
	return false
}
