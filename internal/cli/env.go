package cli

import (
	"fmt"

	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/config"
	"github.com/kuse-dev/cowork/internal/log"
	"github.com/kuse-dev/cowork/internal/store"
	"github.com/kuse-dev/cowork/prompts"
)

// environment bundles the configuration, logger and store shared by commands.
type environment struct {
	dir    string
	cfg    *config.Config
	logger *log.Logger // nil when logging is disabled
	store  *store.Store
}

// resolveConfigDir returns --config-dir or the default directory.
func resolveConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return config.DefaultDir()
}

// openEnv loads the configuration and opens the log and database.
func openEnv() (*environment, error) {
	dir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	env := &environment{dir: dir, cfg: cfg}

	if cfg.Log.Enabled {
		logger, err := log.NewLogger(dir)
		if err != nil {
			return nil, fmt.Errorf("opening log: %w", err)
		}
		env.logger = logger
	}

	st, err := store.Open(cfg.DBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	env.store = st

	return env, nil
}

// Close releases the database.
func (e *environment) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// newController builds a controller that logs to the event log and records
// tasks in the store. offline skips the credentials gate for scripted runs.
func (e *environment) newController(runner agent.Runner, offline bool) *agent.Controller {
	systemPrompt := e.cfg.Agent.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = prompts.AgentSystemPrompt
	}

	return agent.New(runner, func(o *agent.Options) {
		o.Logger = e.logger
		o.Recorder = store.NewTaskRecorder(e.store, e.logger)
		o.SystemPrompt = systemPrompt
		o.AllowedTools = e.cfg.Agent.AllowedTools
		if !offline {
			o.Configured = e.cfg.IsConfigured
		}
	})
}
