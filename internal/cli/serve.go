package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tickvoice/tickvoice/internal/config"
	"github.com/tickvoice/tickvoice/internal/provider"
	"github.com/tickvoice/tickvoice/internal/server"
	"github.com/tickvoice/tickvoice/internal/ticktick"
	"github.com/tickvoice/tickvoice/internal/timeline"
	"github.com/tickvoice/tickvoice/internal/tools"
)

var (
	serveDirect bool
	serveHost   string
	servePort   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("direct") {
			cfg.Server.DirectAgent = serveDirect
		}
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		llm, err := buildProvider(cfg)
		if err != nil {
			return err
		}

		client, err := buildTickTickClient(cfg)
		if err != nil {
			return err
		}
		if !client.Authenticated() {
			color.Yellow("No valid TickTick credential found. Run 'tickvoice authorize' to enable task tools.")
		}
		registry := tools.NewRegistry()
		tools.RegisterTaskTools(registry, client)

		stateDir, err := config.StateDir(cfg)
		if err != nil {
			return fmt.Errorf("resolve state dir: %w", err)
		}
		journal, err := timeline.NewService(filepath.Join(stateDir, "journal.db"))
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer journal.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mode := "team"
		if cfg.Server.DirectAgent {
			mode = "direct"
		}
		color.Cyan("Starting tickvoice server on %s:%d (%s mode)", cfg.Server.Host, cfg.Server.Port, mode)
		return server.New(cfg, llm, registry, journal).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveDirect, "direct", false, "use the single-agent direct strategy instead of the session engine")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
}

// buildProvider selects the configured LLM backend. OpenRouter wins when
// both keys are present since it fronts the default model catalog.
func buildProvider(cfg *config.Config) (provider.LLMProvider, error) {
	switch {
	case cfg.Providers.OpenRouter.APIKey != "":
		return provider.NewOpenAIProvider(cfg.Providers.OpenRouter.APIKey, cfg.Providers.OpenRouter.APIBase, cfg.Model.Name), nil
	case cfg.Providers.OpenAI.APIKey != "":
		return provider.NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name), nil
	default:
		return nil, fmt.Errorf("no LLM provider configured: set OPENROUTE_API_KEY or OPENAI_API_KEY")
	}
}

func buildTickTickClient(cfg *config.Config) (*ticktick.Client, error) {
	tokenFile := cfg.TickTick.TokenFile
	if tokenFile == "" {
		stateDir, err := config.StateDir(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		tokenFile = filepath.Join(stateDir, "ticktick_token.json")
	}
	return ticktick.NewClient(ticktick.Config{
		ClientID:     cfg.TickTick.ClientID,
		ClientSecret: cfg.TickTick.ClientSecret,
		RedirectPort: cfg.TickTick.CallbackPort,
		TokenFile:    tokenFile,
	}), nil
}
