package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "S3RIPPER_"

// Config holds all configuration options for the asset ripper
type Config struct {
	// Adobe identity and API endpoints
	Adobe AdobeConfig `yaml:"adobe" json:"adobe"`

	// Collections to rip when none are given on the command line
	Collections CollectionsConfig `yaml:"collections" json:"collections"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Delay between downloads
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// HTTP transport settings
	Transport TransportConfig `yaml:"transport" json:"transport"`

	// Claim behaviour for assets the account does not own yet
	Claim ClaimConfig `yaml:"claim" json:"claim"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AdobeConfig holds the IMS and GraphQL settings
type AdobeConfig struct {
	SessionID  string `yaml:"ims_sid" json:"ims_sid"`
	ClientID   string `yaml:"client_id" json:"client_id"`
	Scope      string `yaml:"scope" json:"scope"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
	IMSURL     string `yaml:"ims_url" json:"ims_url"`
	GraphQLURL string `yaml:"graphql_url" json:"graphql_url"`
	Origin     string `yaml:"origin" json:"origin"`
}

// CollectionsConfig lists collection ids and the page size used to walk them
type CollectionsConfig struct {
	IDs       []string `yaml:"ids" json:"ids"`
	PageLimit int      `yaml:"page_limit" json:"page_limit"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// PacingConfig bounds the random delay after each download, in whole seconds
type PacingConfig struct {
	MinDelay int `yaml:"min_delay" json:"min_delay"`
	MaxDelay int `yaml:"max_delay" json:"max_delay"`
}

// TransportConfig holds request timeout and retry settings
type TransportConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	MaxAttempts   int           `yaml:"max_attempts" json:"max_attempts"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
}

// ClaimConfig controls what happens with assets outside the entitlement set
type ClaimConfig struct {
	OnFailure string `yaml:"on_failure" json:"on_failure"`
	FreeOnly  bool   `yaml:"free_only" json:"free_only"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// Claim failure policies
const (
	OnFailureAbort = "abort"
	OnFailureSkip  = "skip"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Adobe: AdobeConfig{
			ClientID:   "substance-source",
			Scope:      "account_type,openid,AdobeID,read_organizations",
			UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36",
			IMSURL:     "https://adobeid-na1.services.adobe.com/ims/check/v6/token?jslVersion=v2-v0.31.0-2-g1e8a8a8",
			GraphQLURL: "https://source-api.substance3d.com/beta/graphql",
			Origin:     "https://substance3d.adobe.com/",
		},
		Collections: CollectionsConfig{
			PageLimit: 60,
		},
		Output: OutputConfig{
			BaseDirectory: "substance3d_ripper_output",
		},
		Pacing: PacingConfig{
			MinDelay: 2,
			MaxDelay: 6,
		},
		Transport: TransportConfig{
			Timeout:       30 * time.Second,
			MaxAttempts:   5,
			BackoffFactor: 0.5,
		},
		Claim: ClaimConfig{
			OnFailure: OnFailureAbort,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(envPrefix + "IMS_SID"); v != "" {
		c.Adobe.SessionID = v
	}
	if v := os.Getenv(envPrefix + "USER_AGENT"); v != "" {
		c.Adobe.UserAgent = v
	}
	if v := os.Getenv(envPrefix + "IMS_URL"); v != "" {
		c.Adobe.IMSURL = v
	}
	if v := os.Getenv(envPrefix + "GRAPHQL_URL"); v != "" {
		c.Adobe.GraphQLURL = v
	}
	if v := os.Getenv(envPrefix + "COLLECTIONS"); v != "" {
		c.Collections.IDs = splitList(v)
	}
	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}

	intVars := map[string]*int{
		"PAGE_LIMIT":   &c.Collections.PageLimit,
		"MIN_DELAY":    &c.Pacing.MinDelay,
		"MAX_DELAY":    &c.Pacing.MaxDelay,
		"MAX_ATTEMPTS": &c.Transport.MaxAttempts,
	}
	for name, dst := range intVars {
		v := os.Getenv(envPrefix + name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
			continue
		}
		*dst = n
	}

	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", envPrefix, err))
		} else {
			c.Transport.Timeout = d
		}
	}
	if v := os.Getenv(envPrefix + "ON_PURCHASE_FAILURE"); v != "" {
		c.Claim.OnFailure = strings.ToLower(v)
	}
	if v := os.Getenv(envPrefix + "FREE_ONLY"); v != "" {
		c.Claim.FreeOnly = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".s3ripper.yaml",
		".s3ripper.yml",
		filepath.Join(home, ".config", "s3ripper", "config.yaml"),
		filepath.Join(home, ".config", "s3ripper", "config.yml"),
		filepath.Join(home, ".s3ripper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. The session id is not
// required here; commands that talk to Adobe check for it themselves.
func (c *Config) Validate() error {
	var errs []error

	for name, raw := range map[string]string{
		"IMS URL":     c.Adobe.IMSURL,
		"GraphQL URL": c.Adobe.GraphQLURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL", name))
		}
	}
	if c.Adobe.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}

	if c.Collections.PageLimit <= 0 {
		errs = append(errs, errors.New("page limit must be positive"))
	}
	for _, id := range c.Collections.IDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, errors.New("collection ids cannot be blank"))
			break
		}
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Pacing.MinDelay < 0 || c.Pacing.MaxDelay < 0 {
		errs = append(errs, errors.New("pacing delays cannot be negative"))
	}
	if c.Pacing.MaxDelay < c.Pacing.MinDelay {
		errs = append(errs, errors.New("max delay must not be below min delay"))
	}

	if c.Transport.Timeout <= 0 {
		errs = append(errs, errors.New("transport timeout must be positive"))
	}
	if c.Transport.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Transport.BackoffFactor < 0 {
		errs = append(errs, errors.New("backoff factor cannot be negative"))
	}

	switch c.Claim.OnFailure {
	case OnFailureAbort, OnFailureSkip:
	default:
		errs = append(errs, fmt.Errorf("invalid purchase failure policy %q (want abort or skip)", c.Claim.OnFailure))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, errors.New("invalid log format"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only values that are set and non-zero override.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["ims-sid"].(string); ok && v != "" {
		c.Adobe.SessionID = v
	}
	if v, ok := flags["collections"].([]string); ok && len(v) > 0 {
		c.Collections.IDs = v
	}
	if v, ok := flags["page-limit"].(int); ok && v > 0 {
		c.Collections.PageLimit = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["min-delay"].(int); ok && v >= 0 {
		c.Pacing.MinDelay = v
	}
	if v, ok := flags["max-delay"].(int); ok && v >= 0 {
		c.Pacing.MaxDelay = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Transport.Timeout = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Transport.MaxAttempts = v
	}
	if v, ok := flags["on-purchase-failure"].(string); ok && v != "" {
		c.Claim.OnFailure = strings.ToLower(v)
	}
	if v, ok := flags["free-only"].(bool); ok && v {
		c.Claim.FreeOnly = true
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-format"].(string); ok && v != "" {
		c.Logging.Format = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".s3ripper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
