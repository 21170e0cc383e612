package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// newResetCmd creates the `teekay reset` command for clearing stored
// data.
func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear stored data",
		Long: `Deletes rows from the local database. Pick what to clear with
flags; --all wipes everything including dashboard accounts.

Examples:
  teekay reset --messages
  teekay reset --tasks --reminders
  teekay reset --all`,
		RunE: runReset,
	}
	cmd.Flags().Bool("all", false, "clear everything")
	cmd.Flags().Bool("messages", false, "clear messages")
	cmd.Flags().Bool("conversations", false, "clear conversations")
	cmd.Flags().Bool("tasks", false, "clear tasks")
	cmd.Flags().Bool("reminders", false, "clear reminders")
	cmd.Flags().Bool("memories", false, "clear memories")
	cmd.Flags().Bool("claims", false, "clear stale agent claims")
	return cmd
}

func runReset(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if all, _ := cmd.Flags().GetBool("all"); all {
		n, err := st.ResetEverything()
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d rows.\n", n)
		return nil
	}

	targets := []struct {
		flag  string
		clear func() (int64, error)
	}{
		{"messages", st.ClearMessages},
		{"conversations", st.ClearConversations},
		{"tasks", st.ClearTasks},
		{"reminders", st.ClearReminders},
		{"memories", st.ClearMemories},
		{"claims", st.ClearActiveAgents},
	}

	var selected bool
	for _, t := range targets {
		if on, _ := cmd.Flags().GetBool(t.flag); !on {
			continue
		}
		selected = true
		n, err := t.clear()
		if err != nil {
			return fmt.Errorf("clearing %s: %w", t.flag, err)
		}
		fmt.Printf("Cleared %d %s.\n", n, t.flag)
	}
	if !selected {
		return fmt.Errorf("nothing selected; pass --all or one of --messages, --tasks, --reminders, --memories, --conversations, --claims")
	}
	return nil
}
