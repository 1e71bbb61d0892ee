package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is everything the engine needs at construction time. Values come
// from defaults, an optional YAML file, RDUM_* environment variables, and
// command-line flags, in increasing order of precedence.
type Config struct {
	SamplesDir  string `mapstructure:"samples_dir"`
	PatternsDir string `mapstructure:"patterns_dir"`
	Tempo       int    `mapstructure:"tempo"`
	SampleRate  int    `mapstructure:"sample_rate"`
	MidiPort    string `mapstructure:"midi_port"`
	WebAddr     string `mapstructure:"web_addr"`
	RPCAddr     string `mapstructure:"rpc_addr"`
	OSCAddr     string `mapstructure:"osc_addr"`
	TUI         bool   `mapstructure:"tui"`
	DebugLog    string `mapstructure:"debug_log"`
}

// New returns a viper instance preloaded with defaults and env binding. The
// caller binds its flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("samples_dir", "one_shots")
	v.SetDefault("patterns_dir", "patterns")
	v.SetDefault("tempo", 120)
	v.SetDefault("sample_rate", 44100)
	v.SetDefault("midi_port", "")
	v.SetDefault("web_addr", ":8080")
	v.SetDefault("rpc_addr", "")
	v.SetDefault("osc_addr", "")
	v.SetDefault("tui", true)
	v.SetDefault("debug_log", "")
	v.SetEnvPrefix("rdum")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and unmarshals the result.
func Load(v *viper.Viper, file string) (Config, error) {
	var cfg Config
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Tempo < 20 || cfg.Tempo > 300 {
		return cfg, fmt.Errorf("tempo %d out of range [20,300]", cfg.Tempo)
	}
	if cfg.SampleRate <= 0 {
		return cfg, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	return cfg, nil
}
