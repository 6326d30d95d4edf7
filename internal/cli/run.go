// run.go implements the "cowork run" command which drives one agent session
// headlessly and prints its transcript.
package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/agent/agenttest"
	"github.com/kuse-dev/cowork/internal/bridge"
	"github.com/kuse-dev/cowork/internal/chat"
	"github.com/kuse-dev/cowork/internal/config"
	"github.com/kuse-dev/cowork/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Run one agent session and print the transcript",
	Long: `Send a message to the agent runtime and print its progress until the
session completes. The exit status is non-zero when the session ends in an
error. Use --script to replay a JSON Lines event file instead of starting the
runtime.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runProject  string
	runMaxTurns int
	runScript   string
	runChat     string
)

func init() {
	runCmd.Flags().StringVar(&runProject, "project", "", "Project directory the agent works in")
	runCmd.Flags().IntVar(&runMaxTurns, "max-turns", 0, "Maximum number of turns (default from config)")
	runCmd.Flags().StringVar(&runScript, "script", "", "Replay events from a JSON Lines file instead of running the agent")
	runCmd.Flags().StringVar(&runChat, "chat", "", `Save the exchange to a conversation ("new" or a conversation ID)`)
}

func runRun(cmd *cobra.Command, args []string) error {
	message := strings.TrimSpace(args[0])
	if message == "" {
		return agent.ErrEmptyMessage
	}

	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	var runner agent.Runner
	if runScript != "" {
		f, err := os.Open(runScript)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		events, err := agenttest.ReadScript(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		runner = agenttest.NewScriptedRunner(events...)
	} else {
		runner = bridge.NewProcessRunner(env.cfg, env.logger)
	}
	ctrl := env.newController(runner, runScript != "")

	var conv *chat.State
	if runChat != "" {
		conv, err = openConversation(env, runChat)
		if err != nil {
			return err
		}
		conv.AddLocalMessage("user", message)
		conv.AddLocalMessage("assistant", "")
	}

	maxTurns := runMaxTurns
	if maxTurns <= 0 {
		maxTurns = env.cfg.Agent.MaxTurns
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	printer := ui.NewTranscriptPrinter(out)
	printer.Header(message)

	stream, err := ctrl.Submit(ctx, message, agent.SubmitContext{ProjectPath: runProject, MaxTurns: maxTurns})
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrNotConfigured):
			return fmt.Errorf("%w; run 'cowork config init' and set provider.api_key or %s", err, config.EnvAPIKey)
		case errors.Is(err, agent.ErrHostUnavailable):
			return fmt.Errorf("%s: %q not found in PATH", agent.HostUnavailableMessage, env.cfg.Agent.Command)
		}
		printer.Finish(ctrl.Snapshot())
		return err
	}

	encoder := newEventEcho(cmd.ErrOrStderr())
	consumeErr := stream.ConsumeFunc(ctx, func(ev agent.Event, applied bool) {
		if verbose {
			encoder.echo(ev)
		}
		if !applied {
			return
		}
		state := ctrl.Snapshot()
		printer.Update(state)
		if conv != nil {
			conv.UpdateLastMessage(state.Text)
		}
	})

	state := ctrl.Snapshot()
	printer.Finish(state)

	if conv != nil {
		if err := saveExchange(env, conv, state); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: saving conversation: %v\n", err)
		}
	}

	switch state.Phase() {
	case agent.PhaseErrored:
		return fmt.Errorf("agent session failed: %s", *state.Err)
	case agent.PhaseRunning:
		// Interrupted or the stream ended early; the reset records the task as failed.
		ctrl.Reset()
		if consumeErr != nil {
			return consumeErr
		}
		return agent.ErrStreamClosed
	}
	return nil
}

// openConversation loads the chat state and selects or creates the target.
func openConversation(env *environment, target string) (*chat.State, error) {
	st := chat.New(env.store, env.logger)
	if err := st.Load(); err != nil {
		return nil, err
	}
	if target == "new" {
		if _, err := st.Create(); err != nil {
			return nil, err
		}
		return st, nil
	}
	if err := st.Select(target); err != nil {
		return nil, err
	}
	return st, nil
}

// saveExchange persists the local user and assistant messages of the run.
func saveExchange(env *environment, conv *chat.State, state agent.SessionState) error {
	msgs := conv.Messages()
	if len(msgs) < 2 {
		return nil
	}
	reply := msgs[len(msgs)-1].Content
	if state.Err != nil {
		reply = strings.TrimSpace(reply + "\n\nError: " + *state.Err)
	}

	if _, err := env.store.AddMessage(conv.ActiveID(), msgs[len(msgs)-2].Role, msgs[len(msgs)-2].Content); err != nil {
		return err
	}
	if _, err := env.store.AddMessage(conv.ActiveID(), "assistant", reply); err != nil {
		return err
	}
	return nil
}
