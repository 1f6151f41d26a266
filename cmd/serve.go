package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr      string
	serveNoFetch   bool
	serveMaxUpload int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analysis sessions over an HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		addr := c.ServerAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		opt, err := (&loadFlags{}).options(c)
		if err != nil {
			return err
		}
		var fetcher server.Fetcher
		if !serveNoFetch {
			client, err := newDownloadClient(c, "")
			if err != nil {
				logger.Warn("dataset downloads disabled", "error", err)
			} else {
				fetcher = client
			}
		}
		srv := server.New(server.Options{
			Addr:        addr,
			IdleTimeout: time.Duration(c.SessionIdleMinutes) * time.Minute,
			Session:     sessionOptions(c),
			Dataset:     opt.Options,
			MaxUpload:   serveMaxUpload,
			Fetcher:     fetcher,
			Logger:      logger,
		})
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on http://%s\n", addr)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr)")
	serveCmd.Flags().BoolVar(&serveNoFetch, "no-fetch", false, "disable the dataset download endpoint")
	serveCmd.Flags().Int64Var(&serveMaxUpload, "max-upload", server.DefaultMaxUpload, "maximum upload size in bytes")
}
