package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for greharvest.
type Config struct {
	Fetcher Fetcher `mapstructure:"fetcher" yaml:"fetcher"`
	Proxy   Proxy   `mapstructure:"proxy"   yaml:"proxy"`
	Harvest Harvest `mapstructure:"harvest" yaml:"harvest"`
	Extract Extract `mapstructure:"extract" yaml:"extract"`
	Archive Archive `mapstructure:"archive" yaml:"archive"`
	Storage Storage `mapstructure:"storage" yaml:"storage"`
	Logging Logging `mapstructure:"logging" yaml:"logging"`
}

// Fetcher controls the HTTP/browser fetcher.
type Fetcher struct {
	Type            string        `mapstructure:"type"              yaml:"type"` // http or browser
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"       yaml:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"       yaml:"retry_delay"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay"  yaml:"politeness_delay"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	Referer         string        `mapstructure:"referer"           yaml:"referer"`
}

// Proxy controls proxy rotation.
type Proxy struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// Harvest controls index-page link harvesting.
type Harvest struct {
	// DenyPatterns are URL substrings that mark a link as not-a-question.
	DenyPatterns []string `mapstructure:"deny_patterns" yaml:"deny_patterns"`
}

// Extract controls question-content extraction.
type Extract struct {
	// MinQuestionLength rejects extractions shorter than this many runes.
	MinQuestionLength int `mapstructure:"min_question_length" yaml:"min_question_length"`

	// BodyFallbackLimit caps the generic body-text fallback, in runes.
	BodyFallbackLimit int `mapstructure:"body_fallback_limit" yaml:"body_fallback_limit"`
}

// Archive controls filesystem output.
type Archive struct {
	OutputDir         string `mapstructure:"output_dir"          yaml:"output_dir"`
	MaxFilenameLength int    `mapstructure:"max_filename_length" yaml:"max_filename_length"`
	KeepExisting      bool   `mapstructure:"keep_existing"       yaml:"keep_existing"`
}

// Storage controls the optional MongoDB mirror of archived questions.
type Storage struct {
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// Logging controls logging behavior.
type Logging struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: Fetcher{
			Type:            "http",
			RequestTimeout:  30 * time.Second,
			MaxRetries:      3,
			RetryDelay:      1 * time.Second,
			PolitenessDelay: 1 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			},
		},
		Proxy: Proxy{
			Enabled:  false,
			Rotation: "round_robin",
		},
		Harvest: Harvest{
			DenyPatterns: []string{
				"gre-prep-whatsapp",
				"gre-premium-quant-question-banks",
				"how-to-achieve",
				"gre-hard-and-tricky-verbal",
				"gre-skill-builder-project",
				"the-best-gre-books",
				"gre-prep-club",
				"forum/search",
				"forum/viewforum",
			},
		},
		Extract: Extract{
			MinQuestionLength: 40,
			BodyFallbackLimit: 2000,
		},
		Archive: Archive{
			OutputDir:         ".",
			MaxFilenameLength: 100,
		},
		Storage: Storage{
			MongoDatabase:   "greharvest",
			MongoCollection: "questions",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}
