package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug             = "debug"
	ConfigCPUProfile        = "cpu-profile"
	ConfigMemProfile        = "mem-profile"
	ConfigPuzzleMaxNodes    = "puzzle-max-nodes"
	ConfigPuzzleTimeBudget  = "puzzle-time-budget"
	ConfigPuzzlePruneRatio  = "puzzle-prune-ratio"
	ConfigPuzzleThreads     = "puzzle-threads"
	ConfigPuzzleMemoize     = "puzzle-memoize"
	ConfigBonusThresholds   = "bonus-thresholds"
	ConfigBonusIncrement    = "bonus-increment"
	ConfigCatalogPath       = "catalog-path"
	ConfigSimIterations     = "sim-iterations"
	ConfigSimThreads        = "sim-threads"
	ConfigSimStop           = "sim-stop"
	ConfigDefaultMode       = "default-mode"
	ConfigDefaultRole       = "default-role"
	ConfigHistoryFile       = "history-file"
	configEnvPrefix         = "LAPIDARY"
	defaultConfigFileName   = "config"
	defaultConfigFileFormat = "yaml"
)

// Config wraps a viper instance. Values come from, in increasing order of
// precedence: defaults, an optional config.yaml, LAPIDARY_* environment
// variables and command-line flags.
type Config struct {
	*viper.Viper
	args []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigCPUProfile, "")
	v.SetDefault(ConfigMemProfile, "")
	v.SetDefault(ConfigPuzzleMaxNodes, 1_000_000)
	v.SetDefault(ConfigPuzzleTimeBudget, 15*time.Second)
	v.SetDefault(ConfigPuzzlePruneRatio, 0.95)
	v.SetDefault(ConfigPuzzleThreads, 1)
	v.SetDefault(ConfigPuzzleMemoize, true)
	v.SetDefault(ConfigBonusThresholds, []int{9, 12, 15, 18, 21})
	v.SetDefault(ConfigBonusIncrement, 265)
	v.SetDefault(ConfigCatalogPath, "")
	v.SetDefault(ConfigSimIterations, 10000)
	v.SetDefault(ConfigSimThreads, 0)
	v.SetDefault(ConfigSimStop, 99)
	v.SetDefault(ConfigDefaultMode, 1)
	v.SetDefault(ConfigDefaultRole, "dealer")
	v.SetDefault(ConfigHistoryFile, "")
}

// DefaultConfig returns a config with only the defaults set. Tests use it.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{Viper: v}
}

// Load reads the config file, the environment and args.
func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	setDefaults(c.Viper)

	c.SetConfigName(defaultConfigFileName)
	c.SetConfigType(defaultConfigFileFormat)
	c.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		c.AddConfigPath(home + "/.lapidary")
	}
	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	} else {
		log.Info().Str("file", c.ConfigFileUsed()).Msg("loaded-config-file")
	}

	c.SetEnvPrefix(configEnvPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	fs := pflag.NewFlagSet("lapidary", pflag.ContinueOnError)
	// Flags end at the first positional argument; the rest is a command.
	fs.SetInterspersed(false)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigCPUProfile, "", "file to write a CPU profile to")
	fs.String(ConfigMemProfile, "", "file to write a memory profile to")
	fs.Int(ConfigPuzzleMaxNodes, 1_000_000, "search node budget per optimizer scenario")
	fs.Duration(ConfigPuzzleTimeBudget, 15*time.Second, "wall-clock budget per optimizer scenario")
	fs.Float64(ConfigPuzzlePruneRatio, 0.95, "fraction of the best score below which branches are pruned")
	fs.Int(ConfigPuzzleThreads, 1, "optimizer scenarios to run in parallel")
	fs.Bool(ConfigPuzzleMemoize, true, "reuse optimizer results for identical requests")
	fs.IntSlice(ConfigBonusThresholds, []int{9, 12, 15, 18, 21}, "attribute cell counts that earn a bonus")
	fs.Int(ConfigBonusIncrement, 265, "bonus per threshold reached")
	fs.String(ConfigCatalogPath, "", "YAML file overriding the attribute and role catalog")
	fs.Int(ConfigSimIterations, 10000, "maximum iterations per simulation")
	fs.Int(ConfigSimThreads, 0, "simulation threads (0 means one per CPU)")
	fs.Int(ConfigSimStop, 99, "stop simulating once this confidence is reached (0 disables)")
	fs.Int(ConfigDefaultMode, 1, "reward mode the shell starts in")
	fs.String(ConfigDefaultRole, "dealer", "role the shell starts with")
	fs.String(ConfigHistoryFile, "", "readline history file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c.args = fs.Args()
	return c.BindPFlags(fs)
}

// Args are the arguments left over after flags.
func (c *Config) Args() []string {
	return c.args
}

// Write saves the current settings to the config file in use.
func (c *Config) Write() error {
	if c.ConfigFileUsed() == "" {
		return c.SafeWriteConfigAs(defaultConfigFileName + "." + defaultConfigFileFormat)
	}
	return c.WriteConfig()
}

// SanitizedSettings lists settings in a stable order for logging.
func (c *Config) SanitizedSettings() string {
	settings := c.AllSettings()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, settings[k])
	}
	return sb.String()
}
