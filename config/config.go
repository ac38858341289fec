package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/parlorchat/parlor/globals"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultHistorySize = 50
)

// Config is the global configuration object which is filled via the
// configuration file.
type Config struct {
	Rooms             []RoomConfig      `mapstructure:"room"`
	HistoryConfig     HistoryConfig     `mapstructure:"history"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	LogLevel          string            `mapstructure:"log_level"`
	AdminUser         string            `mapstructure:"admin_user"` // friend code with implicit admin flag
}

// RoomConfig seeds one public room at boot. Filter is an optional expr
// expression evaluated against each recipient on chat broadcasts in this
// room (empty means deliver to everyone).
type RoomConfig struct {
	Id     string `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	Filter string `mapstructure:"filter"`
}

// HistoryConfig configures the size of the per-room message history window
// that is kept in memory and replayed to joining connections.
type HistoryConfig struct {
	HistorySize int `mapstructure:"history_size"`
}

// PersistenceConfig configures the store backend. Type is "buntdb",
// "sqlite" or "postgres"; DSN is the file name for buntdb/sqlite or the
// connection string for postgres. FlockPath guards the buntdb file against
// a second process.
type PersistenceConfig struct {
	Type      string `mapstructure:"type"`
	DSN       string `mapstructure:"dsn"`
	FlockPath string `mapstructure:"flock_path"`
}

// PublicRooms returns the configured public rooms, falling back to the
// default trio when the configuration names none.
func (c *Config) PublicRooms() []RoomConfig {
	if len(c.Rooms) > 0 {
		return c.Rooms
	}
	return []RoomConfig{
		{Id: "main", Name: "Общая"},
		{Id: "work", Name: "Работа"},
		{Id: "games", Name: "Игры"},
	}
}

// HistorySize returns the configured replay window, or the default.
func (c *Config) HistorySize() int {
	if c.HistoryConfig.HistorySize > 0 {
		return c.HistoryConfig.HistorySize
	}
	return defaultHistorySize
}

// RoomFilter returns the delivery filter expression for a room, if any.
func (c *Config) RoomFilter(roomId string) string {
	for _, rc := range c.Rooms {
		if rc.Id == roomId {
			return rc.Filter
		}
	}
	return ""
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.StringP("admin-user", "a", "", "friend code of the admin user")
	flagSet.String("log-level", "", "log level (TRACE/DEBUG/INFO/WARN/ERROR)")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.Replace(name, "-", "_", -1))
}

// ReadConfiguration reads and parses the configuration located at
// configPath, which can either point to a single TOML file or to a
// directory, in which case all *.toml files in this directory are
// concatenated. It returns a Config object.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	err := viper.BindPFlags(flagSet)
	if err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("PARLOR")
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := ioutil.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		err = viper.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			globals.AppLogger.Error("could not read config", "error", err)
		}
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		globals.AppLogger.Error("could not unmarshal config", "error", err)
	}
	return &cfg, nil
}
