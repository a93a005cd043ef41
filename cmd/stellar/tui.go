package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/tui"
)

type tuiOptions struct {
	backendOptions

	Catalog string
	LogFile string
	Debug   bool
}

func tuiCmd() *cobra.Command {
	var o tuiOptions
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the player in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), o)
		},
	}

	o.addFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&o.Catalog, "catalog", "", "Track catalog (.json or .db); built-in demo catalog when empty")
	f.StringVar(&o.LogFile, "log-file", "", "Write logs to this file; logs are discarded when empty")
	f.BoolVar(&o.Debug, "debug", false, "Enable debug logging")

	return cmd
}

func runTUI(ctx context.Context, o tuiOptions) error {
	// The terminal belongs to the TUI, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if o.LogFile != "" {
		f, err := os.OpenFile(o.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	setupLogging(out, o.Debug)

	cat, err := catalog.Load(o.Catalog)
	if err != nil {
		return err
	}
	b, err := openBackend(o.backendOptions)
	if err != nil {
		return err
	}
	defer b.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	go b.Run(ctx)

	controller := player.NewController(b.Element, cat)
	defer controller.Close()

	return tui.Run(ctx, controller)
}
