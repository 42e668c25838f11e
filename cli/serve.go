package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/monadicstack/livepost/internal/logger"
	"github.com/monadicstack/livepost/posts"
	"github.com/monadicstack/livepost/web"
)

// ServeRequest contains the inputs from our "livepost serve" CLI command.
type ServeRequest struct {
	configOption
	// Addr is the value of the --addr flag; it beats both the file and the environment.
	Addr string
}

// Serve runs the web application until it receives SIGINT/SIGTERM.
type Serve struct{}

// Command creates the Cobra struct describing this CLI command and its options.
func (c Serve) Command() *cobra.Command {
	request := &ServeRequest{}
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Runs the posts web application.",
		Long:  "Opens the configured post store and serves the posts screen plus its RPC endpoints until interrupted. Shutdown waits for in-flight calls to finish.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.Exec(ctx, request)
		},
	}
	request.bind(cmd)
	cmd.Flags().StringVar(&request.Addr, "addr", "", "Listen address, e.g. :8080 (overrides config)")
	return cmd
}

// Exec loads settings, opens the store and blocks serving HTTP until ctx is cancelled.
func (c Serve) Exec(ctx context.Context, request *ServeRequest) error {
	cfg, err := request.load()
	if err != nil {
		return err
	}
	if request.Addr != "" {
		cfg.Server.Addr = request.Addr
	}

	store, err := posts.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	server, err := web.NewServer(store,
		web.WithAddr(cfg.Server.Addr),
		web.WithLogger(logger.Logger),
		web.WithSessionTTL(cfg.SessionTTL()),
	)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	return server.Run(ctx)
}
