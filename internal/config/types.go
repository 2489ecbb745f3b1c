package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
)

// Config is the top-level specloom configuration, corresponding to .specloom.yml.
type Config struct {
	Provider     ProviderType `yaml:"provider" koanf:"provider"`
	Model        string       `yaml:"model" koanf:"model"`
	Port         int          `yaml:"port" koanf:"port"`
	DataDir      string       `yaml:"data_dir" koanf:"data_dir"`
	AllowAll     bool         `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RateLimitRPM int          `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:     ProviderAnthropic,
		Model:        "claude-sonnet-4-5-20250929",
		Port:         8080,
		DataDir:      "data",
		AllowAll:     false,
		RateLimitRPM: 60,
	}
}

// DefaultModel returns the recommended model for the given provider.
func DefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o"
	default:
		return "claude-sonnet-4-5-20250929"
	}
}
