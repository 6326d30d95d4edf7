// chats.go implements the "cowork chats" command group for managing
// conversations.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuse-dev/cowork/internal/chat"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage saved conversations",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: withChats(func(cmd *cobra.Command, st *chat.State, args []string) error {
		out := cmd.OutOrStdout()
		convs := st.Conversations()
		if len(convs) == 0 {
			fmt.Fprintln(out, "No conversations yet. Start one with: cowork chats new")
			return nil
		}
		for _, c := range convs {
			marker := " "
			if c.ID == st.ActiveID() {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s  %s  %s\n", marker, c.ID, c.UpdatedAt.Local().Format("Jan 02 15:04"), c.Title)
		}
		return nil
	}),
}

var chatsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an empty conversation",
	Args:  cobra.NoArgs,
	RunE: withChats(func(cmd *cobra.Command, st *chat.State, args []string) error {
		conv, err := st.Create()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s)\n", conv.Title, conv.ID)
		return nil
	}),
}

var chatsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: withChats(func(cmd *cobra.Command, st *chat.State, args []string) error {
		if err := st.Delete(args[0]); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Deleted %s\n", args[0])
		if active := st.Active(); active != nil {
			fmt.Fprintf(out, "Active conversation: %s (%s)\n", active.Title, active.ID)
		}
		return nil
	}),
}

var chatsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print the messages of a conversation (default: most recent)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withChats(func(cmd *cobra.Command, st *chat.State, args []string) error {
		if len(args) == 1 {
			if err := st.Select(args[0]); err != nil {
				return err
			}
		}
		active := st.Active()
		if active == nil {
			return fmt.Errorf("no conversations")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n\n", active.Title, active.ID)
		msgs := st.Messages()
		if len(msgs) == 0 {
			fmt.Fprintln(out, "No messages yet.")
			return nil
		}
		for _, m := range msgs {
			fmt.Fprintf(out, "[%s] %s\n%s\n\n", m.Timestamp.Local().Format("15:04:05"), roleLabel(m.Role), m.Content)
		}
		return nil
	}),
}

func init() {
	chatsCmd.AddCommand(chatsListCmd)
	chatsCmd.AddCommand(chatsNewCmd)
	chatsCmd.AddCommand(chatsRmCmd)
	chatsCmd.AddCommand(chatsShowCmd)
}

// withChats opens the environment, loads the chat state and runs fn.
func withChats(fn func(cmd *cobra.Command, st *chat.State, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		st := chat.New(env.store, env.logger)
		if err := st.Load(); err != nil {
			return err
		}
		return fn(cmd, st, args)
	}
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "Claude"
	default:
		return role
	}
}
