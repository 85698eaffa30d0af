package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aurelia/sfc-vite/internal/plugin"
	"github.com/aurelia/sfc-vite/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the hot-reloading dev server",
	Long: `Start a development server that compiles components on demand and
pushes reload events to connected clients when component files change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		p := plugin.New(cfg, plugin.WithLogger(logger))
		defer p.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.New(cfg, p, logger).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "server port")
	serveCmd.Flags().String("host", "", "server host")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))

	rootCmd.AddCommand(serveCmd)
}
