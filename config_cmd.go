package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/audioplayers/audioplayers/internal/config"
	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# player variant: soundpool (shared low-latency samples) or track (one
# native player per id)
# variant: "soundpool"
# audio backend: auto, oto, mpv (track variant only) or mock
backend: "auto"
# log debug output
debug: false

# output device format
audio:
  sample_rate: 44100
  channels: 2
  buffer_size: "50ms"

# sound pool settings
pool:
  # concurrently playing streams; the oldest one is stopped beyond this
  max_streams: 100
  # fail loads that take longer than this (0 disables)
  load_timeout: "30s"

# decoded sample cache
cache:
  enabled: true
  # dir: "~/.cache/audioplayers/samples"
  memory_mb: 64
  disk_mb: 256
  # zstd level for the disk tier (0 disables compression)
  compression_level: 3
  # drop disk samples older than this on startup (0 keeps them forever)
  max_age: "720h"
`

var printExample bool

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the audioplayers config file",
	Long:    paragraph(fmt.Sprintf("\n%s the audioplayers config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("audioplayers config\naudioplayers config --config path/to/config.yml\naudioplayers config --example"),
	Args:    cobra.NoArgs,
	// Skips config loading so that a broken file can still be edited.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, _ []string) error {
		if printExample {
			example, err := config.GenerateExample()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), example)
			return nil
		}

		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("audioplayers", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&printExample, "example", false, "print the default configuration instead of editing")
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}
	if configFile == "" {
		configFile = defaultConfigFile
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
