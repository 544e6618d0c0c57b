// Package config loads application settings and the news preference
// profile from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Preferences is the user preference profile for one digest run. It is
// immutable once loaded.
type Preferences struct {
	Topics             []string
	Keywords           []string
	MaxAgeHours        int
	PreferredSources   []string
	ExcludedSources    []string
	IncludeOpinion     bool
	IncludeAnalysis    bool
	GeographicFocus    []string
	RelevanceThreshold float64 // [0,1]
	MaxArticles        int     // >= 1
}

type Config struct {
	// Gemini settings
	GeminiAPIKey      string
	ModelName         string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)

	// Vault output settings
	VaultPath    string
	OutputFolder string

	// Source discovery settings
	SourcesConfigPath string
	FetchDelay        time.Duration // pause between metadata fetches
	DiscoveryHeadroom int           // link prefix multiplier per source
	PreferredBoost    float64       // score multiplier for preferred sources

	// Selection settings
	UseIntelligentSelection bool
	Preferences             Preferences

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		ModelName:               "gemini-1.5-flash",
		VaultPath:               "./output",
		OutputFolder:            "Daily_news",
		SourcesConfigPath:       "configs/sources.yaml",
		FetchDelay:              500 * time.Millisecond,
		DiscoveryHeadroom:       2,
		PreferredBoost:          1.2,
		UseIntelligentSelection: true,
		RequestTimeout:          30 * time.Second,
		CacheTTL:                6 * time.Hour,
		Preferences: Preferences{
			Topics:             []string{"world news", "technology", "science"},
			MaxAgeHours:        24,
			IncludeOpinion:     true,
			IncludeAnalysis:    true,
			GeographicFocus:    []string{"global"},
			RelevanceThreshold: 0.7,
			MaxArticles:        10,
		},
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.ModelName = v
	}
	if v := os.Getenv("MAX_GEMINI_REQUESTS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.MaxGeminiRequests = val
		}
	}

	if v := os.Getenv("VAULT_PATH"); v != "" {
		cfg.VaultPath = v
	}
	if v := os.Getenv("OUTPUT_FOLDER"); v != "" {
		cfg.OutputFolder = v
	}
	if v := os.Getenv("SOURCES_CONFIG_PATH"); v != "" {
		cfg.SourcesConfigPath = v
	}

	if v := os.Getenv("FETCH_DELAY_MS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.FetchDelay = time.Duration(val) * time.Millisecond
		}
	}
	if v := os.Getenv("DISCOVERY_HEADROOM"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 1 {
			cfg.DiscoveryHeadroom = val
		}
	}
	if v := os.Getenv("PREFERRED_BOOST"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val >= 1.0 {
			cfg.PreferredBoost = val
		}
	}

	if v := os.Getenv("USE_INTELLIGENT_SELECTION"); v != "" {
		cfg.UseIntelligentSelection = parseBool(v)
	}

	cfg.Preferences.Topics = getEnvListOrDefault("NEWS_TOPICS", cfg.Preferences.Topics)
	cfg.Preferences.Keywords = getEnvListOrDefault("NEWS_KEYWORDS", cfg.Preferences.Keywords)
	cfg.Preferences.PreferredSources = getEnvListOrDefault("NEWS_PREFERRED_SOURCES", cfg.Preferences.PreferredSources)
	cfg.Preferences.ExcludedSources = getEnvListOrDefault("NEWS_EXCLUDED_SOURCES", cfg.Preferences.ExcludedSources)
	cfg.Preferences.GeographicFocus = getEnvListOrDefault("NEWS_GEOGRAPHIC_FOCUS", cfg.Preferences.GeographicFocus)

	if v := os.Getenv("NEWS_MAX_AGE_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.Preferences.MaxAgeHours = val
		}
	}
	if v := os.Getenv("NEWS_INCLUDE_OPINION"); v != "" {
		cfg.Preferences.IncludeOpinion = parseBool(v)
	}
	if v := os.Getenv("NEWS_INCLUDE_ANALYSIS"); v != "" {
		cfg.Preferences.IncludeAnalysis = parseBool(v)
	}
	if v := os.Getenv("NEWS_RELEVANCE_THRESHOLD"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Preferences.RelevanceThreshold = val
		}
	}
	if v := os.Getenv("NEWS_MAX_ARTICLES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 1 {
			cfg.Preferences.MaxArticles = val
		}
	}

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RequestTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("CACHE_TTL_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.CacheTTL = time.Duration(val) * time.Hour
		}
	}

	return cfg, cfg.Validate()
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// getEnvListOrDefault splits a comma-separated env var into a trimmed,
// non-empty list; empty entries are dropped.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if len(c.Preferences.Topics) == 0 {
		return fmt.Errorf("NEWS_TOPICS must not be empty")
	}
	if len(c.Preferences.GeographicFocus) == 0 {
		return fmt.Errorf("NEWS_GEOGRAPHIC_FOCUS must not be empty")
	}
	if c.Preferences.RelevanceThreshold < 0 || c.Preferences.RelevanceThreshold > 1 {
		return fmt.Errorf("NEWS_RELEVANCE_THRESHOLD must be in [0,1], got %v", c.Preferences.RelevanceThreshold)
	}
	if c.Preferences.MaxArticles < 1 {
		return fmt.Errorf("NEWS_MAX_ARTICLES must be >= 1")
	}
	return nil
}
