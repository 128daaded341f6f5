// Package archivecmd holds the archiver subcommands. Each NewXCmd builds
// the cobra command and hands its flags to an executeX function.
package archivecmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when --config is not given and it exists
const DefaultConfigFile = "archiver.yaml"

// Config holds default file locations. Command flags override it.
type Config struct {
	Songs     string `yaml:"songs"`
	Entries   string `yaml:"entries"`
	Flags     string `yaml:"flags"`
	Genres    string `yaml:"genres"`
	Related   string `yaml:"related"`
	SourceCSV string `yaml:"source_csv"`
	OutputDir string `yaml:"output_dir"`
	CoversDir string `yaml:"covers_dir"`
}

// DefaultConfig is the layout of the site's data directory
func DefaultConfig() Config {
	return Config{
		Songs:     "data/songs.json",
		Entries:   "data/entries.json",
		Flags:     "data/artist_flags.csv",
		Genres:    "data/album_genres.json",
		OutputDir: "data",
		CoversDir: "public/covers",
	}
}

// LoadConfig reads a YAML config over the defaults. A missing default
// config file is not an error; a missing explicit one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	slog.Debug("Loaded config", "path", path)
	return cfg, nil
}

// Output joins name onto the configured output directory
func (c Config) Output(name string) string {
	return filepath.Join(c.OutputDir, name)
}

// configFrom loads the config named by the root --config flag
func configFrom(cmd *cobra.Command) (Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return LoadConfig(path)
}

// pick returns flag when the user set it, else the config value
func pick(flag, fromConfig string) string {
	if flag != "" {
		return flag
	}
	return fromConfig
}

// fileExists is used for optional inputs
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
