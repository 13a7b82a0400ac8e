package config

import "os"

// ChatRuntime is the per-invocation view of the agent settings: the loop
// resolves it once at the start of each run and treats it as immutable.
type ChatRuntime struct {
	Model           string
	Temperature     float64
	MaxOutputTokens *int64
	// AuthMode records how the LLM provider authenticates: "oauth" when an
	// OAuth client is configured in the environment, "api-key" otherwise.
	// Observability metadata only.
	AuthMode string
}

// ResolveChatRuntime derives the runtime parameters for one loop run.
func ResolveChatRuntime(cfg *Config) ChatRuntime {
	rt := ChatRuntime{
		Model:       cfg.Agent.Model,
		Temperature: cfg.Agent.Temperature,
		AuthMode:    "api-key",
	}
	if cfg.Agent.MaxOutputTokens > 0 {
		cap := cfg.Agent.MaxOutputTokens
		rt.MaxOutputTokens = &cap
	}
	if os.Getenv("OAUTH_URL") != "" && os.Getenv("CLIENT_ID") != "" {
		rt.AuthMode = "oauth"
	}
	return rt
}
