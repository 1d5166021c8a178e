package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIKeyEnv is consulted when no provider key is configured.
const APIKeyEnv = "PIXABAY_API_KEY"

type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	PerPage     int           `mapstructure:"per_page"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	ImageType   string        `mapstructure:"image_type"`
	Orientation string        `mapstructure:"orientation"`
	SafeSearch  bool          `mapstructure:"safe_search"`
}

type UIConfig struct {
	Colors         UIColors      `mapstructure:"colors"`
	InlinePreview  bool          `mapstructure:"inline_preview"`
	PreviewWidth   int           `mapstructure:"preview_width"`
	NoticeDuration time.Duration `mapstructure:"notice_duration"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type MediaConfig struct {
	Darwin        MediaPlayers `mapstructure:"darwin"`
	Linux         MediaPlayers `mapstructure:"linux"`
	Windows       MediaPlayers `mapstructure:"windows"`
	DefaultOpener string       `mapstructure:"default_opener"`
}

type MediaPlayers struct {
	Image []string `mapstructure:"image"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit     string `mapstructure:"quit"`
	Search   string `mapstructure:"search"`
	LoadMore string `mapstructure:"load_more"`
	Filter   string `mapstructure:"filter"`
	Open     string `mapstructure:"open"`
	Back     string `mapstructure:"back"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Provider: ProviderConfig{
			BaseURL:     "https://pixabay.com/api/",
			PerPage:     12,
			HTTPTimeout: 15 * time.Second,
			UserAgent:   "pixl/1.0 (https://github.com/pders01/pixl)",
			ImageType:   "photo",
			Orientation: "horizontal",
			SafeSearch:  true,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			InlinePreview:  false,
			PreviewWidth:   640,
			NoticeDuration: 3 * time.Second,
		},
		Media: MediaConfig{
			Darwin: MediaPlayers{
				Image: []string{"preview", "open"},
			},
			Linux: MediaPlayers{
				Image: []string{"sxiv", "feh", "eog", "xdg-open"},
			},
			Windows: MediaPlayers{
				Image: []string{"start"},
			},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:     "q",
				Search:   "s",
				LoadMore: "l",
				Filter:   "/",
				Open:     "o",
				Back:     "esc",
			},
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(homeDir, ".pixl", "pixl.log"),
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pixl", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	// PIXL_PROVIDER_API_KEY overrides provider.api_key
	v.SetEnvPrefix("PIXL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Decode over the defaults so partial sections keep their other keys
	config := *defaultConfig()
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.Provider.APIKey == "" {
		config.Provider.APIKey = os.Getenv(APIKeyEnv)
	}
	if config.Provider.PerPage <= 0 {
		config.Provider.PerPage = cfg.Provider.PerPage
	}

	config.Log.File = expandPath(config.Log.File)

	return &config, nil
}

// setDefaults registers every leaf key, which is what lets AutomaticEnv
// see nested settings.
func setDefaults(v *viper.Viper, cfg *Config) {
	p := cfg.Provider
	v.SetDefault("provider.base_url", p.BaseURL)
	v.SetDefault("provider.api_key", p.APIKey)
	v.SetDefault("provider.per_page", p.PerPage)
	v.SetDefault("provider.http_timeout", p.HTTPTimeout)
	v.SetDefault("provider.user_agent", p.UserAgent)
	v.SetDefault("provider.image_type", p.ImageType)
	v.SetDefault("provider.orientation", p.Orientation)
	v.SetDefault("provider.safe_search", p.SafeSearch)

	c := cfg.UI.Colors
	v.SetDefault("ui.colors.primary", c.Primary)
	v.SetDefault("ui.colors.secondary", c.Secondary)
	v.SetDefault("ui.colors.accent", c.Accent)
	v.SetDefault("ui.colors.background", c.Background)
	v.SetDefault("ui.colors.surface", c.Surface)
	v.SetDefault("ui.colors.text", c.Text)
	v.SetDefault("ui.colors.muted", c.Muted)
	v.SetDefault("ui.colors.error", c.Error)
	v.SetDefault("ui.colors.success", c.Success)
	v.SetDefault("ui.inline_preview", cfg.UI.InlinePreview)
	v.SetDefault("ui.preview_width", cfg.UI.PreviewWidth)
	v.SetDefault("ui.notice_duration", cfg.UI.NoticeDuration)

	v.SetDefault("media.darwin.image", cfg.Media.Darwin.Image)
	v.SetDefault("media.linux.image", cfg.Media.Linux.Image)
	v.SetDefault("media.windows.image", cfg.Media.Windows.Image)
	v.SetDefault("media.default_opener", cfg.Media.DefaultOpener)

	b := cfg.Keys.Bindings
	v.SetDefault("keys.modifier", cfg.Keys.Modifier)
	v.SetDefault("keys.bindings.quit", b.Quit)
	v.SetDefault("keys.bindings.search", b.Search)
	v.SetDefault("keys.bindings.load_more", b.LoadMore)
	v.SetDefault("keys.bindings.filter", b.Filter)
	v.SetDefault("keys.bindings.open", b.Open)
	v.SetDefault("keys.bindings.back", b.Back)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings keep the TOML readable
	providerCfg := map[string]interface{}{
		"base_url":     config.Provider.BaseURL,
		"api_key":      config.Provider.APIKey,
		"per_page":     config.Provider.PerPage,
		"http_timeout": config.Provider.HTTPTimeout.String(),
		"user_agent":   config.Provider.UserAgent,
		"image_type":   config.Provider.ImageType,
		"orientation":  config.Provider.Orientation,
		"safe_search":  config.Provider.SafeSearch,
	}

	colors := config.UI.Colors
	uiCfg := map[string]interface{}{
		"colors": map[string]interface{}{
			"primary":    colors.Primary,
			"secondary":  colors.Secondary,
			"accent":     colors.Accent,
			"background": colors.Background,
			"surface":    colors.Surface,
			"text":       colors.Text,
			"muted":      colors.Muted,
			"error":      colors.Error,
			"success":    colors.Success,
		},
		"inline_preview":  config.UI.InlinePreview,
		"preview_width":   config.UI.PreviewWidth,
		"notice_duration": config.UI.NoticeDuration.String(),
	}

	v.Set("provider", providerCfg)
	v.Set("ui", uiCfg)
	v.Set("media", map[string]interface{}{
		"darwin":         map[string]interface{}{"image": config.Media.Darwin.Image},
		"linux":          map[string]interface{}{"image": config.Media.Linux.Image},
		"windows":        map[string]interface{}{"image": config.Media.Windows.Image},
		"default_opener": config.Media.DefaultOpener,
	})
	b := config.Keys.Bindings
	v.Set("keys", map[string]interface{}{
		"modifier": config.Keys.Modifier,
		"bindings": map[string]interface{}{
			"quit":      b.Quit,
			"search":    b.Search,
			"load_more": b.LoadMore,
			"filter":    b.Filter,
			"open":      b.Open,
			"back":      b.Back,
		},
	})
	v.Set("log", map[string]interface{}{
		"level": config.Log.Level,
		"file":  config.Log.File,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
