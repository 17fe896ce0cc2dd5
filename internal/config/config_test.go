package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("SAGEMAKER_ROLE_ARN", "arn:aws:iam::123456789012:role/processing")
	t.Setenv(DataLoaderFallbackDatasetEnv, "/data/fallback.csv")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "arn:aws:iam::123456789012:role/processing", cfg.SageMakerRoleARN)
	assert.Equal(t, "/data/fallback.csv", cfg.DataLoaderFallbackDataset)
}

func TestLoadDefaultsRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
}

func TestUserAgentSourceResolve(t *testing.T) {
	source := func(vars map[string]string) UserAgentSource {
		return UserAgentSource{
			Lookup: func(key string) (string, bool) {
				value, ok := vars[key]
				return value, ok
			},
			Default: "default-agent",
		}
	}

	t.Run("explicit value wins", func(t *testing.T) {
		s := source(map[string]string{SECUserAgentEnv: "env-agent"})
		assert.Equal(t, "explicit-agent", s.Resolve("explicit-agent"))
	})

	t.Run("primary env variable", func(t *testing.T) {
		s := source(map[string]string{
			SECUserAgentEnv:          "env-agent",
			LegacySECContactEmailEnv: "legacy-agent",
		})
		assert.Equal(t, "env-agent", s.Resolve(""))
	})

	t.Run("legacy env variable", func(t *testing.T) {
		s := source(map[string]string{LegacySECContactEmailEnv: "legacy-agent"})
		assert.Equal(t, "legacy-agent", s.Resolve(""))
	})

	t.Run("empty env values are skipped", func(t *testing.T) {
		s := source(map[string]string{SECUserAgentEnv: ""})
		assert.Equal(t, "default-agent", s.Resolve(""))
	})

	t.Run("default", func(t *testing.T) {
		s := source(nil)
		assert.Equal(t, "default-agent", s.Resolve(""))
	})

	t.Run("nothing resolves", func(t *testing.T) {
		s := UserAgentSource{}
		assert.Equal(t, "", s.Resolve(""))
	})
}

func TestDefaultUserAgentSource(t *testing.T) {
	t.Setenv(SECUserAgentEnv, "Env Agent env@example.com")

	s := DefaultUserAgentSource()
	assert.Equal(t, "Env Agent env@example.com", s.Resolve(""))

	t.Setenv(SECUserAgentEnv, "")
	t.Setenv(LegacySECContactEmailEnv, "legacy@example.com")
	assert.Equal(t, "legacy@example.com", s.Resolve(""))
}
