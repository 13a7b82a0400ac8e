package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mkale/sleuth/agent"
	"github.com/mkale/sleuth/agent/terminal"
	"github.com/mkale/sleuth/chat"
	"github.com/mkale/sleuth/config"
	"github.com/mkale/sleuth/llm"
	"github.com/mkale/sleuth/tools"
	"github.com/mkale/sleuth/web"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const logDir = "logs"

func main() {
	root := &cobra.Command{
		Use:   "sleuth",
		Short: "Web research and document retrieval agent",
	}

	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, a, logger, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			srv := web.NewServer(cfg, a, chat.NewStore(), logger)
			return srv.Start(serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the agent in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, _, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println("Sleuth is ready. Type your message, or 'quit' to exit.")
			term := terminal.New(a, chat.NewConversation(), os.Stdin, os.Stdout)
			return term.Run(cmd.Context())
		},
	}

	root.AddCommand(serve, chatCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and wires the agent with the configured
// provider.
func setup(ctx context.Context) (*config.Config, *agent.Agent, zerolog.Logger, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, logger, err
	}

	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, logger, err
	}

	registry := tools.NewDefaultRegistry(tools.NewBrightData(cfg, logger))
	a := agent.New(cfg, client, registry, agent.NewAudit(logDir), logger)
	return cfg, a, logger, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (llm.Client, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIClient(ctx)
	case "anthropic":
		return llm.NewAnthropicClient(ctx)
	case "gemini":
		return llm.NewGeminiClient(ctx)
	case "bedrock":
		return llm.NewBedrockClient(ctx)
	default:
		logger.Warn().Str("llm", cfg.Provider).Msg("unknown provider, using mock client")
		return &llm.MockClient{}, nil
	}
}
