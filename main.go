// Package main provides the entry point for the audioplayers plugin host.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/audioplayers/audioplayers/internal/channel"
	"github.com/audioplayers/audioplayers/internal/config"
	"github.com/audioplayers/audioplayers/internal/plugin"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile        string
	defaultConfigFile string
	debug             bool
	variant           string
	backend           string

	cfg    config.Config
	envCfg config.Env

	rootCmd = &cobra.Command{
		Use:   "audioplayers",
		Short: "Play audio on behalf of a host application",
		Long: paragraph(
			fmt.Sprintf("\nPlay audio on behalf of a host application. Method calls are read as %s from stdin and answered on stdout.", keyword("newline-delimited JSON")),
		),
		Example:          paragraph(`echo '{"id":1,"method":"play","arguments":{"playerId":"a","url":"file:///tmp/click.wav"}}' | audioplayers`),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: serve,
	}
)

func validateOptions(*cobra.Command) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c
	applyLogLevel(cfg.Debug)
	return nil
}

func applyLogLevel(debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// watchConfig re-applies the log level when the config file changes. Audio
// settings take effect on the next start.
func watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c, err := config.Load(viper.GetViper())
		if err != nil {
			log.Warn("Ignoring invalid configuration change", "file", e.Name, "error", err)
			return
		}
		applyLogLevel(c.Debug)
		log.Info("Configuration reloaded", "file", e.Name, "debug", c.Debug)
	})
	viper.WatchConfig()
}

func serve(cmd *cobra.Command, _ []string) error {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, paragraph(fmt.Sprintf("Reading method calls from the terminal. Type %s per line, Ctrl-D to quit.", keyword("one JSON call"))))
	}

	srv := channel.NewServer(os.Stdout)
	p, err := plugin.Attach(plugin.Options{Config: cfg, Env: envCfg, Emitter: srv})
	if err != nil {
		return err
	}
	defer func() { _ = p.Detach() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchConfig()

	if err := srv.Serve(ctx, os.Stdin, p.Dispatcher); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("unable to serve method calls: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output")
	rootCmd.PersistentFlags().StringVar(&variant, "variant", "", "player variant (soundpool or track)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "audio backend (auto, oto, mpv or mock)")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("variant", rootCmd.PersistentFlags().Lookup("variant"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(cacheCmd, configCmd, manCmd, playCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	e, err := config.ReadEnv()
	if err != nil {
		log.Warn("Could not parse environment", "err", err)
	}
	envCfg = e

	dirs, err := envCfg.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	defaultConfigFile = filepath.Join(dirs[0], config.AppName+".yml")
}
