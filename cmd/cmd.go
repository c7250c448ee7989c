// Package cmd holds the CLI entry point: one root command that loads the
// configuration and runs the portfolio server.
package cmd

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/alief-faisal/portofoliowidia/api"
	"github.com/alief-faisal/portofoliowidia/backend"
	"github.com/alief-faisal/portofoliowidia/config"
	"github.com/alief-faisal/portofoliowidia/scheduler"
)

var rootCmdPersistentFlags struct {
	LogFile    string
	ConfigFile string
	LogLevel   string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogFile, "log-file", "", "File to write logs to")
	rootCmd.PersistentFlags().StringVarP(&rootCmdPersistentFlags.ConfigFile, "config", "c", "", "Path to config file (default: search for config.yml in current dir, ~/.portfolio, /etc/portfolio)")
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogLevel, "log-level", "", "Log level (debug, info, warn, error) - overrides config file setting")
}

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Portfolio serves Widia's portfolio site and its admin back-office",
	Long:  `Portfolio serves the public portfolio landing page and the admin panel for managing the photo gallery, the about text and the site settings. All data lives in a managed backend consumed over HTTPS.`,
	Example: `portfolio --config config.yml
  portfolio -c /path/to/config.yml --log-level debug`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logToFile()
	},
	RunE: root,
}

func root(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if rootCmdPersistentFlags.LogLevel != "" {
		level = rootCmdPersistentFlags.LogLevel
	}
	setLogLevel(level)

	client, err := backend.New(backend.Config{
		URL:     cfg.Backend.URL,
		AnonKey: cfg.Backend.AnonKey,
	})
	if err != nil {
		if !errors.Is(err, backend.ErrNotConfigured) {
			return err
		}
		// The server still comes up: public views fall back to defaults
		// and the admin route explains what is missing.
		client = nil
	}

	server, err := api.New(cfg, client, log.GetLevel() == log.DebugLevel)
	if err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if client != nil && cfg.RefreshInterval > 0 {
		sched, err = scheduler.New()
		if err != nil {
			return err
		}
		interval := time.Duration(cfg.RefreshInterval) * time.Minute
		if err := sched.AddIntervalJob("view_cache_refresh", interval, server.Views().Refresh); err != nil {
			return err
		}
		sched.Start()
	}

	go func() {
		log.Info("starting portfolio server", "listen", cfg.Listen)
		if err := server.Run(); err != nil {
			log.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Info("portfolio started successfully")
	<-c
	log.Info("shutting down gracefully...")

	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
		}
	}
	time.Sleep(2 * time.Second)
	return nil
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info", "":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Warnf("unknown log level %s, defaulting to info", level)
		log.SetLevel(log.InfoLevel)
	}
}

func logToFile() {
	if rootCmdPersistentFlags.LogFile == "" {
		return
	}
	file, err := os.OpenFile(rootCmdPersistentFlags.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		log.Errorf("failed to open log file: %v", err)
		return
	}

	// Create a multi-writer that writes to both console and file
	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.Info("logging to both console and file", "file", rootCmdPersistentFlags.LogFile)
}

// Root returns the root command for the fang runner in main.
func Root() *cobra.Command {
	return rootCmd
}
