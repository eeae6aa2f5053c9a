// Package config loads the process configuration from the environment.
// The configuration is resolved once at startup and treated as immutable
// for the rest of the run.
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingToken is returned when no GitHub credential is configured.
// Network operations cannot proceed without it, so callers should treat
// this as fatal for the whole run.
var ErrMissingToken = errors.New("GITHUB_TOKEN environment variable is not set")

// Config holds every externally tunable knob of the crawl and analysis.
type Config struct {
	GitHubToken string `envconfig:"GITHUB_TOKEN"`
	APIURL      string `envconfig:"GITHUB_API_URL" default:"https://api.github.com/graphql"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"5"`
	RetryDelay     time.Duration `envconfig:"RETRY_DELAY" default:"10s"`

	// Repository selection.
	RepoLimit    int `envconfig:"REPO_LIMIT" default:"50"`
	RepoPageSize int `envconfig:"REPO_PAGE_SIZE" default:"10"`
	CandidateCap int `envconfig:"CANDIDATE_CAP" default:"1000"`
	MinPRCount   int `envconfig:"MIN_PR_COUNT" default:"100"`
	RepoWorkers  int `envconfig:"REPO_WORKERS" default:"10"`

	// Pull request crawl.
	PRPageSize       int     `envconfig:"PR_PAGE_SIZE" default:"10"`
	MaxPRsPerRepo    int     `envconfig:"MAX_PRS_PER_REPO" default:"50"`
	PRWorkers        int     `envconfig:"PR_WORKERS" default:"5"`
	MinDurationHours float64 `envconfig:"MIN_DURATION_HOURS" default:"1"`
	MinReviews       int     `envconfig:"MIN_REVIEWS" default:"1"`

	CheckpointEvery int    `envconfig:"CHECKPOINT_EVERY" default:"50"`
	DataDir         string `envconfig:"DATA_DIR" default:"data"`
}

// Load reads an optional .env file, then resolves the configuration from
// the environment. A missing token is not an error here: commands that do
// not touch the network (analyze, checkpoints) run without one, and the
// fetch path checks RequireToken before building a client.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RequireToken validates the credential precondition for network commands.
func (c *Config) RequireToken() error {
	if c.GitHubToken == "" {
		return ErrMissingToken
	}
	return nil
}
