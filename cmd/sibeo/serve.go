package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sibeo/internal/web"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := sibeo.cfg.Web.Addr
		if addrFlag != "" {
			addr = addrFlag
		}

		flash, err := web.NewFlashSigner(sibeo.cfg.Web.FlashSecret, 0)
		if err != nil {
			return err
		}
		server, err := web.NewServer(web.Deps{
			Session:   sibeo.session,
			Forms:     sibeo.forms,
			Courses:   sibeo.courses,
			Dashboard: sibeo.dashboard,
			Manage:    sibeo.manage,
			Flash:     flash,
			Health:    sibeo.store.Health,
			Logger:    sibeo.logger,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides SIBEO_WEB_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
