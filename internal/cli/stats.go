// stats.go implements the "cowork stats" command.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task and conversation statistics",
	RunE:  runStats,
}

var statsTasks int

func init() {
	statsCmd.Flags().IntVar(&statsTasks, "tasks", 5, "Number of recent tasks to list")
}

func runStats(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	st, err := env.store.Statistics()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "cowork Statistics")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Total Tasks:     %d\n", st.TotalTasks)
	fmt.Fprintf(out, "  Completed:       %d\n", st.CompletedTasks)
	fmt.Fprintf(out, "  Conversations:   %d\n", st.TotalConversations)
	fmt.Fprintf(out, "  Total Messages:  %d\n", st.TotalMessages)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Success Rate: %d%%\n", st.SuccessRate())

	if statsTasks <= 0 {
		return nil
	}
	tasks, err := env.store.ListTasks(statsTasks)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Recent tasks:")
	for _, t := range tasks {
		line := fmt.Sprintf("  %-9s  %s  %s", t.Status, t.CreatedAt.Local().Format("Jan 02 15:04"), oneLine(t.Message, 60))
		if t.TotalTurns > 0 {
			line += fmt.Sprintf("  (%d turns)", t.TotalTurns)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// oneLine flattens s and cuts it to limit runes.
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
