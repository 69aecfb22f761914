package cmd

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/calbot/calbot/internal/agent"
	"github.com/calbot/calbot/internal/config"
	"github.com/calbot/calbot/internal/instrumentation"
	"github.com/calbot/calbot/internal/logging"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
	"github.com/calbot/calbot/internal/tools/booking_tools"
	"github.com/calbot/calbot/internal/tools/datetime_tools"
)

// loadConfig loads the effective configuration and wires the default
// logger from it. Every command starts here.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// registerAllTools registers every tool group on the registry
func registerAllTools(reg *tools.Registry, sc *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Booking",
			register: func() error {
				return booking_tools.RegisterBookingTools(reg, sc)
			},
		},
		{
			name: "DateTime",
			register: func() error {
				return datetime_tools.RegisterDateTimeTools(reg, sc)
			},
		},
	}

	for _, r := range registrations {
		if err := r.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", r.name, err)
		}
	}
	return nil
}

// buildAgent constructs the OpenAI-backed conversation agent on top of
// the tool registry. A nil metrics handle disables agent instrumentation.
func buildAgent(cfg *config.Config, registry *tools.Registry, metrics *instrumentation.Metrics) (*agent.Agent, error) {
	llmOpts := []openai.Option{
		openai.WithToken(cfg.OpenAI.APIKey),
		openai.WithModel(cfg.OpenAI.Model),
	}
	if cfg.OpenAI.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}

	llm, err := openai.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	agentOpts := []agent.Option{
		agent.WithModelName(cfg.OpenAI.Model),
		agent.WithTemperature(cfg.OpenAI.Temperature),
		agent.WithMaxToolIterations(cfg.Agent.MaxToolIterations),
		agent.WithMaxHistory(cfg.Agent.MaxHistory),
	}
	if metrics != nil {
		agentOpts = append(agentOpts, agent.WithMetrics(metrics))
	}

	return agent.New(llm, registry, agentOpts...), nil
}
