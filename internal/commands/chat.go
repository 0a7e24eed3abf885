package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/mira/internal/api"
	"github.com/diogo/mira/internal/chat"
	"github.com/diogo/mira/internal/history"
	"github.com/diogo/mira/internal/render"
	"github.com/diogo/mira/internal/tui"
)

var (
	chatResumeFlag string
	chatNewFlag    bool
)

var chatCmd = NewChatCmd(defaultDependencies)

// NewChatCmd creates the chat command with injectable dependencies
func NewChatCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with MiraAI.

Conversations are saved as you go. The sidebar lists them newest first;
press Tab to move between the sidebar and the input.

Use --resume to open a saved conversation:
` + history.ListAliases(),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps)
		},
	}

	cmd.Flags().StringVarP(&chatResumeFlag, "resume", "r", "", "Open a saved conversation (index, id, title or alias)")
	cmd.Flags().BoolVarP(&chatNewFlag, "new", "n", false, "Start in a new conversation")
	return cmd
}

func runChat(cmd *cobra.Command, deps *Dependencies) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := setupLogger(cfg)
	defer closeLog()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case chatNewFlag:
		if _, err := store.Create(); err != nil {
			return err
		}
	case chatResumeFlag != "":
		id, err := history.NewResolver(store).Resolve(chatResumeFlag)
		if err != nil {
			return err
		}
		if _, err := store.Select(id); err != nil {
			return err
		}
	}

	if cfg.TUITheme != "" && !render.SetTUITheme(cfg.TUITheme) {
		logger.Warn().Str("theme", cfg.TUITheme).Msg("unknown TUI theme, using default")
	}
	tui.UpdateTheme()

	client, err := newClient(cfg, api.WithClientLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	session := chat.NewSession(store, client.Socket,
		chat.WithAnalyzer(client.Analyzer),
		chat.WithLogger(logger.With().Str("component", "chat").Logger()))

	logger.Info().Str("endpoint", cfg.Endpoint).Int("conversations", store.Len()).Msg("chat started")
	return deps.TUI.RunChat(commandContext(cmd), session, client.Socket, render.OptionsFromConfig(cfg.Markdown))
}
