// Package commands implements the mira command line interface.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"

	// Global flags
	endpointFlag  string
	uploadURLFlag string
	dataDirFlag   string
	logLevelFlag  string

	// One-shot flags
	outputFlag  string
	fileFlag    string
	imageFlag   string
	rawFlag     bool
	timeoutFlag time.Duration
	versionFlag bool
)

// defaultTimeout bounds a one-shot question
const defaultTimeout = 60 * time.Second

var rootCmd = &cobra.Command{
	Use:   "mira [prompt]",
	Short: "Terminal client for the MiraAI assistant",
	Long: `mira talks to the MiraAI assistant over a websocket connection.

Run without arguments for the interactive chat, or pass a prompt for a
single question:

  mira "What is Go?"
  mira -f prompt.md
  cat prompt.md | mira
  mira --image photo.png`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "mira %s (built %s)\n", Version, BuildTime)
			return nil
		}

		if imageFlag != "" {
			return runAnalyze(cmd, imageFlag)
		}

		if fileFlag != "" {
			data, err := os.ReadFile(fileFlag)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			return runQuery(cmd, string(data))
		}

		if len(args) > 0 {
			return runQuery(cmd, args[0])
		}

		if stdinIsPiped(cmd.InOrStdin()) {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			if prompt := strings.TrimSpace(string(data)); prompt != "" {
				return runQuery(cmd, prompt)
			}
		}

		return runChat(cmd, defaultDependencies)
	},
}

// stdinIsPiped reports whether r carries piped input rather than a terminal
func stdinIsPiped(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		// Readers set by tests are always data
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, ""))
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&endpointFlag, "endpoint", "", "Websocket endpoint of the assistant service")
	pf.StringVar(&uploadURLFlag, "upload-url", "", "Image analysis endpoint")
	pf.StringVar(&dataDirFlag, "data-dir", "", "Directory for conversations and logs")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error, disabled)")

	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save the reply to a file")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read the prompt from a file")
	rootCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Describe an image instead of sending a prompt")
	rootCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print the reply without formatting")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", defaultTimeout, "How long to wait for a reply")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "v", false, "Show version information")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(devserverCmd)
}
