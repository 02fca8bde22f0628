// Package config handles scc.toml compiler configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultOutput is the assembly file written when nothing else is configured.
const DefaultOutput = "gen.s"

// Config holds compiler settings. Command-line flags override file values.
type Config struct {
	// Output is the path of the generated assembly file.
	Output string `toml:"output"`
	// Debug dumps tokens, nodes and resolved locals to stdout.
	Debug bool `toml:"debug"`
	// Verbosity is the log verbosity passed to commonlog.
	Verbosity int `toml:"verbosity"`
	// Entry is the function run by --exec.
	Entry string `toml:"entry"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{Output: DefaultOutput, Entry: "main"}
}

// Load reads a TOML file over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.Entry == "" {
		cfg.Entry = "main"
	}
	return cfg, nil
}
