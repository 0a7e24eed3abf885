package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/mira/internal/config"
	"github.com/diogo/mira/internal/render"
)

// NewConfigCmd creates the config command and its subcommands
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Long: `Show or change mira settings.

Settings live in ~/.mira/config.json. MIRA_ENDPOINT, MIRA_UPLOAD_URL and
MIRA_DATA_DIR override the file, and the global flags override both.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a setting",
		Long:  "Change a setting and save it.\n\nKeys: " + strings.Join(config.Keys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadStoredConfig()
			if err != nil {
				return err
			}

			key, value := args[0], args[1]
			switch key {
			case "tui_theme":
				if _, ok := render.GetTUIThemeByName(value); !ok {
					return fmt.Errorf("unknown theme: %s (available: %s)", value, strings.Join(render.TUIThemeNames(), ", "))
				}
			case "markdown.style":
				// anything that is not a named style must be a JSON style file
				if !render.IsBuiltinStyle(value) {
					if _, err := os.Stat(value); err != nil {
						return fmt.Errorf("unknown markdown style: %s (available: %s, or a JSON style file)", value, strings.Join(render.ThemeNames(), ", "))
					}
				}
			}
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s\n", key, value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "themes",
		Short: "List chat color themes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, theme := range render.AvailableTUIThemes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", theme.Name, theme.Description)
			}
		},
	})

	return cmd
}

var configCmd = NewConfigCmd()
