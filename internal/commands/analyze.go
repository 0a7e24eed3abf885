package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/mira/internal/api"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze IMAGE",
	Short: "Describe an image",
	Long: `Upload an image to the analysis service and print its description.

Supported formats: PNG, JPEG, GIF and WebP.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args[0])
	},
}

// runAnalyze uploads one image and prints the description
func runAnalyze(cmd *cobra.Command, path string) error {
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
		spin = newSpinner("Analyzing image")
		spin.start()
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeoutFlag)
	defer cancel()

	reply, err := client.Analyzer.AnalyzeFile(ctx, path)
	if spin != nil {
		spin.stopWithError()
	}
	if err != nil {
		return fmt.Errorf("image analysis failed: %w", err)
	}
	if !reply.OK() {
		logger.Warn().Str("kind", reply.Kind.String()).Err(reply.Err).Msg("analysis without description")
	}

	return writeReply(cmd, cfg, reply.Display(), raw)
}
