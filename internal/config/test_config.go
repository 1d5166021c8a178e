package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:     "http://127.0.0.1/api/",
			APIKey:      "test-key",
			PerPage:     12,
			HTTPTimeout: 5 * time.Second,
			UserAgent:   "pixl-test/1.0",
			ImageType:   "photo",
			SafeSearch:  true,
		},
		UI:    defaultConfig().UI,
		Media: defaultConfig().Media,
		Keys:  defaultConfig().Keys,
		Log:   LogConfig{Level: "off"},
	}
}
