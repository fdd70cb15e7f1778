package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/amadvs/internal/platform/config"
)

var (
	dev      bool
	logLevel string

	cfg    config.Config
	logger = zap.NewNop()
)

func Execute() error {
	root := &cobra.Command{
		Use:          "amadvs",
		Short:        "Music school site backend: sessions, login and registration",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadLocal()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger, err = newLogger(dev, cfg.LogLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	root.PersistentFlags().BoolVar(&dev, "dev", false, "human readable development logs")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default $LOG_LEVEL or info)")

	root.AddCommand(serveCmd(), loginCmd(), usersCmd())
	return root.Execute()
}

func newLogger(dev bool, level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if dev {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}
