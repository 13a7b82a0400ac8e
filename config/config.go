package config

import (
	"os"
	"path/filepath"

	"github.com/mkale/sleuth/errors"
	"gopkg.in/yaml.v3"
)

// BrightDataConfig names the Bright Data zones used by the tool layer.
type BrightDataConfig struct {
	SerpZone        string `yaml:"serp_zone"`
	WebUnlockerZone string `yaml:"web_unlocker_zone"`
	// APIBase is overridable for tests; the default is the public endpoint.
	APIBase string `yaml:"api_base"`
}

// AgentConfig controls one loop invocation.
type AgentConfig struct {
	Model        string  `yaml:"model"`
	MaxToolCalls int     `yaml:"max_tool_calls"`
	Temperature  float64 `yaml:"temperature"`
	// MaxOutputTokens caps completion size when > 0; 0 leaves the cap to
	// the provider.
	MaxOutputTokens int64 `yaml:"max_output_tokens"`
}

// DownloadConfig controls where downloaded artifacts land and which of them
// the file endpoint may serve.
type DownloadConfig struct {
	BaseDir       string   `yaml:"base_dir"`
	ServePatterns []string `yaml:"serve_patterns"`
}

// PrebuiltPrompt is a canned task shown in the chat sidebar. Prefill means
// the UI pre-fills the input instead of sending directly.
type PrebuiltPrompt struct {
	ID      string `yaml:"id" json:"id"`
	Label   string `yaml:"label" json:"label"`
	Message string `yaml:"message" json:"message"`
	Prefill bool   `yaml:"prefill" json:"prefill"`
}

type Config struct {
	// Provider selects the LLM backend: openai, anthropic, gemini, bedrock.
	Provider        string           `yaml:"llm"`
	BrightData      BrightDataConfig `yaml:"bright_data"`
	Agent           AgentConfig      `yaml:"agent"`
	Download        DownloadConfig   `yaml:"download"`
	PrebuiltPrompts []PrebuiltPrompt `yaml:"prebuilt_prompts"`
}

// Default returns the built-in configuration, matching a deployment with no
// config.yaml present.
func Default() *Config {
	return &Config{
		Provider: "openai",
		BrightData: BrightDataConfig{
			SerpZone:        "serp_api1",
			WebUnlockerZone: "web_unlocker1",
			APIBase:         "https://api.brightdata.com/request",
		},
		Agent: AgentConfig{
			Model:        "gpt-4.1",
			MaxToolCalls: 50,
			Temperature:  0.2,
		},
		Download: DownloadConfig{
			BaseDir:       "downloads",
			ServePatterns: []string{"*.pdf", "*.xlsx", "*.xls", "*.csv", "*.txt"},
		},
	}
}

// Load reads configuration from the user's home directory and the current
// working directory, the latter taking precedence over the former and both
// over the defaults.
func Load() (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".sleuth", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := loadFromFile(userPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectPath := filepath.Join(wd, "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadFromFile(projectPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites only the fields present in the YAML, so each
	// layer merges over the previous one.
	return yaml.Unmarshal(data, cfg)
}
