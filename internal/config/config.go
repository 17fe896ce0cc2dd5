package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Environment variables recognized by the wrapper. The legacy contact email
// variable is still honored for configurations that predate the user-agent
// rename.
const (
	SECUserAgentEnv          = "SMJS_FINANCE_SEC_USER_AGENT"
	LegacySECContactEmailEnv = "SMJS_FINANCE_SEC_CONTACT_EMAIL"

	DataLoaderLocalDatasetEnv    = "SMJS_FINANCE_DATALOADER_LOCAL_DATASET"
	DataLoaderFallbackDatasetEnv = "SMJS_FINANCE_DATALOADER_FALLBACK_DATASET"
)

// DefaultSECUserAgent is the compiled-in fallback user agent. Replace it with
// a real SEC-compliant contact string for production use, e.g.
// "MyDataPipeline/1.0 (contact: your.name@yourdomain.com)".
const DefaultSECUserAgent = "ExampleDataPipeline/1.0 (contact: contact@example.com)"

// Config holds the process-level settings for submitting processing jobs.
type Config struct {
	AWSRegion         string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	SageMakerRoleARN string `env:"SAGEMAKER_ROLE_ARN"`

	SECUserAgent          string `env:"SMJS_FINANCE_SEC_USER_AGENT"`
	LegacySECContactEmail string `env:"SMJS_FINANCE_SEC_CONTACT_EMAIL"`

	// Local fixture paths for the filing-retrieval job. LocalDataset bypasses
	// the remote job entirely; FallbackDataset substitutes a fixture when the
	// remote job fails.
	DataLoaderLocalDataset    string `env:"SMJS_FINANCE_DATALOADER_LOCAL_DATASET"`
	DataLoaderFallbackDataset string `env:"SMJS_FINANCE_DATALOADER_FALLBACK_DATASET"`
}

// Load parses the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config from environment: %w", err)
	}
	return &cfg, nil
}

// UserAgentSource resolves the SEC user agent string through explicit layers:
// an explicit value, then the primary and legacy environment variables, then
// the compiled-in default. Lookup is injectable so callers and tests are not
// bound to the process environment.
type UserAgentSource struct {
	Lookup  func(key string) (string, bool)
	Default string
}

// DefaultUserAgentSource reads overrides from the process environment and
// falls back to DefaultSECUserAgent.
func DefaultUserAgentSource() UserAgentSource {
	return UserAgentSource{Lookup: os.LookupEnv, Default: DefaultSECUserAgent}
}

// Resolve returns the first non-empty value in precedence order, or "" when
// no layer provides one.
func (s UserAgentSource) Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if s.Lookup != nil {
		if value, ok := s.Lookup(SECUserAgentEnv); ok && value != "" {
			return value
		}
		if value, ok := s.Lookup(LegacySECContactEmailEnv); ok && value != "" {
			return value
		}
	}
	return s.Default
}
