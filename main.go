package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/monadicstack/livepost/cli"
	"github.com/monadicstack/livepost/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "livepost",
		Short:         "A server-rendered posts screen driven by RPC calls.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		cli.Serve{}.Command(),
		cli.List{}.Command(),
		cli.Call{}.Command(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error("livepost failed", "error", err)
		os.Exit(1)
	}
}
