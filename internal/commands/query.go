package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/mira/internal/api"
	"github.com/diogo/mira/internal/config"
	"github.com/diogo/mira/internal/render"
	"github.com/diogo/mira/internal/tui"
)

// clipboardWrite is replaced in tests
var clipboardWrite = clipboard.WriteAll

// replyLabel heads a decorated reply
const replyLabel = "✦ MiraAI"

// runQuery sends one prompt and prints the reply
func runQuery(cmd *cobra.Command, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := setupLogger(cfg)
	defer closeLog()

	client, err := newClient(cfg, api.WithClientLogger(logger))
	if err != nil {
		return err
	}
	defer client.Close()

	raw := rawFlag || !isStdoutTTY()

	var spin *spinner
	if !raw {
		spin = newSpinner("Connecting to MiraAI")
		spin.start()
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeoutFlag)
	defer cancel()

	if err := client.WaitOpen(ctx); err != nil {
		if spin != nil {
			spin.stopWithError()
		}
		return fmt.Errorf("failed to connect: %w", err)
	}
	if spin != nil {
		spin.setMessage("Waiting for a reply")
	}

	logger.Debug().Int("prompt_len", len(prompt)).Msg("one-shot question")
	reply, err := client.Ask(ctx, prompt, 0)
	if err != nil {
		if spin != nil {
			spin.stopWithError()
		}
		return fmt.Errorf("no reply: %w", err)
	}
	if spin != nil {
		spin.stopOnce()
		<-spin.done
	}

	return writeReply(cmd, cfg, reply.Display(), raw)
}

// writeReply prints text to stdout (decorated unless raw), saves it to
// --output and copies it to the clipboard when configured
func writeReply(cmd *cobra.Command, cfg config.Config, text string, raw bool) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	if cfg.CopyToClipboard {
		if err := clipboardWrite(text); err != nil {
			fmt.Fprintf(errOut, "warning: failed to copy to clipboard: %v\n", err)
		} else if !raw {
			fmt.Fprintln(errOut, "✓ Copied to clipboard")
		}
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !raw {
			fmt.Fprintf(errOut, "✓ Response saved to %s\n", outputFlag)
		}
		return nil
	}

	if raw {
		fmt.Fprintln(out, strings.TrimRight(text, "\n"))
		return nil
	}

	printBubble(out, cfg, text)
	return nil
}

// printBubble renders the reply as markdown inside the assistant bubble
func printBubble(w io.Writer, cfg config.Config, text string) {
	theme := render.GetTUITheme()

	bubbleWidth := render.BubbleWidth(getTerminalWidth())

	label := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(replyLabel)
	body := render.Reply(text, render.OptionsFromConfig(cfg.Markdown).ForBubble(bubbleWidth))
	bubble := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Foreground(theme.Text).
		Padding(0, 1).
		Width(bubbleWidth).
		Render(body)

	fmt.Fprintln(w)
	fmt.Fprintln(w, label)
	fmt.Fprintln(w, bubble)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// getTerminalWidth returns the terminal width or 80 when unknown
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// formatErrorMessage formats an error with the hints shown in the chat
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}
	if context != "" {
		err = fmt.Errorf("%s: %w", context, err)
	}
	return tui.FormatError(err)
}
