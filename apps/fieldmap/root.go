package main

import (
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/olablt/gio-fieldmap/internal/config"
	"github.com/olablt/gio-fieldmap/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "fieldmap",
	Short:         "Interactive slippy map with a field boundary editor",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logCloser, err = logging.Setup(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			return err
		}
		log.Debugf("source %s, zoom %d..%d, %d workers", cfg.Source.Kind, cfg.Tiles.ZoomMin, cfg.Tiles.ZoomMax, cfg.Tiles.Workers)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config `file` (default ./fieldmap.toml or ./configs/fieldmap.toml)")
	flags.StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}
