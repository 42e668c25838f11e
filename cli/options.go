package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/monadicstack/livepost/config"
	"github.com/monadicstack/livepost/internal/logger"
)

// configOption can be embedded on a command request struct to give it the --config flag.
type configOption struct {
	// ConfigPath is the YAML/TOML settings file. Blank means defaults plus environment.
	ConfigPath string
}

func (opt *configOption) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&opt.ConfigPath, "config", "", "Path to a livepost.yaml or livepost.toml settings file")
}

// load resolves the settings and points the shared logger at them before anything else
// has a chance to log.
func (opt configOption) load() (config.Config, error) {
	cfg, err := config.Load(opt.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if err = logger.Init(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		return config.Config{}, err
	}
	logger.Debug("config loaded",
		"path", opt.ConfigPath,
		"driver", cfg.Storage.Driver,
		"addr", cfg.Server.Addr,
		"session_ttl", cfg.Session.TTL,
	)
	return cfg, nil
}
