package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/mira/internal/devserver"
	"github.com/diogo/mira/internal/logging"
)

var (
	devserverAddr  string
	devserverDelay time.Duration
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local assistant service for development",
	Long: `Run a local stand-in for the assistant service.

It echoes every chat prompt back as a reply envelope and describes
uploaded images by name, size and type. Point mira at it with:

  mira --endpoint ws://localhost:8080/chat --upload-url http://localhost:8080/image-analyze/image

POST /admin/disconnect drops every connected client, which exercises the
reconnect loop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := logLevelFlag
		if level == "" {
			level = "info"
		}
		logger := logging.NewConsole(cmd.ErrOrStderr(), level)

		srv := devserver.New(devserver.NewHub(),
			devserver.WithLogger(logger),
			devserver.WithReplyDelay(devserverDelay))
		return srv.ListenAndServe(commandContext(cmd), devserverAddr)
	},
}

func init() {
	devserverCmd.Flags().StringVar(&devserverAddr, "addr", ":8080", "Listen address")
	devserverCmd.Flags().DurationVar(&devserverDelay, "delay", 0, "Wait before each reply")
}
