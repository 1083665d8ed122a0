package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wazuh-go/fim-core/internal/fim"
	"github.com/wazuh-go/fim-core/internal/fimconfig"
	"github.com/wazuh-go/fim-core/internal/fimlog"
	"github.com/wazuh-go/fim-core/internal/realtime"
	"github.com/wazuh-go/fim-core/internal/transport"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fimagent",
	Short: "File integrity monitor scan and event engine",
}

var configPath string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a baseline scan and then one scheduled scan, printing emitted events",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildEngine(configPath, nil)
		if err != nil {
			return err
		}

		// The first scan only establishes the baseline (invariant I5);
		// run it twice so a single invocation can show events against
		// an empty starting database.
		engine.Scan()
		engine.Scan()
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run scheduled and realtime scanning, streaming events until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		rt, err := realtime.New(nil, nil)
		if err != nil {
			return fmt.Errorf("starting realtime watcher: %w", err)
		}

		engine, err := buildEngine(configPath, rt)
		if err != nil {
			return err
		}

		rt.Start()
		defer rt.Stop()

		engine.Scan()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-ticker.C:
				engine.Scan()
			case <-sigCh:
				return nil
			}
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := fimconfig.Init(configPath, fimconfig.Default()); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", configPath)
		return nil
	},
}

// buildEngine reads configPath and assembles a ready-to-run fim.Engine
// wired to stdout transport, zap-backed logging, and optionally a
// realtime watcher.
func buildEngine(path string, rt *realtime.Watcher) (*fim.Engine, error) {
	cfg, err := fimconfig.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	dirs, err := cfg.MonitoredDirs()
	if err != nil {
		return nil, fmt.Errorf("resolving monitored directories: %w", err)
	}

	ignoreRegex, err := cfg.IgnoreRegexMatchers()
	if err != nil {
		return nil, fmt.Errorf("compiling ignore regexes: %w", err)
	}

	logger, err := fimlog.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	engineCfg := fim.Config{
		Store:           fim.NewMemoryStore(cfg.FileLimit),
		Dirs:            dirs,
		Capacity:        cfg.FileLimit,
		CapacityEnabled: cfg.FileLimitEnabled,
		FileMaxSize:     cfg.FileMaxSize,
		PrefilterCmd:    cfg.PrefilterCmd,
		MaxEPS:          cfg.MaxEPS,
		Transport:       transport.NewStdout(os.Stdout),
		Logger:          logger,
		IgnorePrefixes:  cfg.Ignore,
		IgnoreRegexes:   ignoreRegex,
		SkipFilesystems: cfg.SkipFilesystems,
		RTDelay:         time.Duration(cfg.RTDelayMS) * time.Millisecond,
	}
	// A typed-nil *realtime.Watcher assigned into the RealtimeWatcher
	// interface field would compare non-nil inside the engine, so this
	// is only set when a real watcher was constructed.
	if rt != nil {
		engineCfg.Realtime = rt
	}

	engine := fim.NewEngine(engineCfg)

	if rt != nil {
		rt.OnEvent(engine.HandleRealtimeEvent)
	}

	return engine, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the TOML configuration file")

	watchCmd.Flags().Duration("interval", 5*time.Minute, "scheduled scan interval")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "fimagent.toml"
	}
	return home + "/.fimagent.toml"
}
