package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/mira/internal/history"
	"github.com/diogo/mira/internal/models"
)

var (
	historyExportFormat    string
	historyExportOutput    string
	historyImportOverwrite bool
	historySearchContent   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage conversation history",
	Long: `View and manage your saved conversations.

Commands taking a conversation accept:
` + history.ListAliases(),
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Show a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <ref>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <ref>",
	Short: "Export a conversation as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import conversations saved by the browser client",
	Long: `Import the "chats" value of the browser client's localStorage.

The file may hold the JSON object itself or the JSON string copied from
the browser's devtools. Existing conversations are kept unless
--overwrite is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryImport,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search conversation titles (and messages with --content)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySearch,
}

func init() {
	historyExportCmd.Flags().StringVar(&historyExportFormat, "format", "markdown", "Export format (markdown or json)")
	historyExportCmd.Flags().StringVarP(&historyExportOutput, "output", "o", "", "Write the export to a file")
	historyImportCmd.Flags().BoolVar(&historyImportOverwrite, "overwrite", false, "Replace conversations with the same id")
	historySearchCmd.Flags().BoolVarP(&historySearchContent, "content", "c", false, "Also search message text")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historySearchCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	return withStore(func(store *history.Store) error {
		out := cmd.OutOrStdout()
		conversations := store.List()
		if len(conversations) == 0 {
			fmt.Fprintln(out, "No conversations found.")
			return nil
		}

		activeID := store.ActiveID()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tMESSAGES\tCREATED")
		_, _ = fmt.Fprintln(w, "-\t--\t-----\t--------\t-------")

		for i, conv := range conversations {
			index := fmt.Sprintf("%d", i+1)
			if conv.ID == activeID {
				index += "*"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				index, conv.ID, truncate(conv.Title, 40), len(conv.Messages), history.FormatRelativeTime(conv.Created))
		}

		return w.Flush()
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withStore(func(store *history.Store) error {
		conv, err := history.NewResolver(store).ResolveWithInfo(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID: %s\n", conv.ID)
		fmt.Fprintf(out, "Title: %s\n", conv.Title)
		fmt.Fprintf(out, "Created: %s\n", conv.Created.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Messages: %d\n", len(conv.Messages))
		fmt.Fprintln(out)

		for i, msg := range conv.Messages {
			role := "You"
			text := history.PlainText(msg.Text)
			if msg.Role == models.RoleAssistant {
				role = "MiraAI"
				text = msg.Text
			}
			fmt.Fprintf(out, "[%d] %s:\n", i+1, role)
			fmt.Fprintf(out, "  %s\n\n", strings.ReplaceAll(text, "\n", "\n  "))
		}
		return nil
	})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	return withStore(func(store *history.Store) error {
		conv, err := history.NewResolver(store).ResolveWithInfo(args[0])
		if err != nil {
			return err
		}

		if _, err := store.Delete(conv.ID); err != nil {
			return fmt.Errorf("failed to delete: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation: %s (%s)\n", conv.Title, conv.ID)
		return nil
	})
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	return withStore(func(store *history.Store) error {
		if err := store.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "All conversations deleted.")
		return nil
	})
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, err := history.ParseExportFormat(historyExportFormat)
	if err != nil {
		return err
	}

	return withStore(func(store *history.Store) error {
		id, err := history.NewResolver(store).Resolve(args[0])
		if err != nil {
			return err
		}

		data, err := store.Export(id, format)
		if err != nil {
			return err
		}

		if historyExportOutput != "" {
			if err := os.WriteFile(historyExportOutput, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported to %s\n", historyExportOutput)
			return nil
		}

		_, err = cmd.OutOrStdout().Write(data)
		return err
	})
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	convs, err := history.ImportBrowser(f)
	if err != nil {
		return err
	}

	return withStore(func(store *history.Store) error {
		n, err := store.Import(convs, historyImportOverwrite)
		if err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d conversations.\n", n, len(convs))
		return nil
	})
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	return withStore(func(store *history.Store) error {
		out := cmd.OutOrStdout()
		results := store.Search(args[0], historySearchContent)
		if len(results) == 0 {
			fmt.Fprintln(out, "No matches.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tTITLE\tMATCH")
		for _, r := range results {
			match := "title"
			if r.MatchField == "content" {
				match = fmt.Sprintf("message %d: %s", r.MatchIndex+1, r.MatchSnippet)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Conversation.ID, truncate(r.Conversation.Title, 40), match)
		}
		return w.Flush()
	})
}

// truncate shortens s to at most n runes, ending with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
