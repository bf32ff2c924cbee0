package main

import (
	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/spf13/cobra"

	"safedrive/internal/widget"
)

func newChatCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat widget against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = cfg.ChatServerURL
			}
			// log lines would tear the full-screen UI
			log.SetHandler(discard.Default)

			ctx, stop := signalContext()
			defer stop()

			client := widget.NewClient(url, cfg.ChatClientTimeout)
			w := widget.New(widget.NewView("Connected to "+url), client)
			return widget.Run(ctx, w)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "chat server base URL (default CHAT_SERVER_URL)")
	return cmd
}
