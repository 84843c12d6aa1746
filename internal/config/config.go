// Package config reads the optional abcpp options file.
//
// The file is TOML or YAML, chosen by extension:
//
//	strip = true
//	plus_to_bracket = true
//	lib_dir = "/home/me/abc/lib"
//	symbols = ["PARTS", "SOLFEGE"]
//
//	[defines]
//	COMPOSER = "Trad."
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/fwessels/abcpp/internal/preprocessor"
)

// EnvLibDir overrides the library directory of both the file and the
// built-in default.
const EnvLibDir = "ABCPP_LIB_DIR"

type Config struct {
	Strip         bool `toml:"strip" yaml:"strip"`
	StripChords   bool `toml:"strip_chords" yaml:"strip_chords"`
	PlusToBracket bool `toml:"plus_to_bracket" yaml:"plus_to_bracket"`
	PlusToBang    bool `toml:"plus_to_bang" yaml:"plus_to_bang"`
	BangToPlus    bool `toml:"bang_to_plus" yaml:"bang_to_plus"`
	StripBang     bool `toml:"strip_bang" yaml:"strip_bang"`
	BangToBreak   bool `toml:"bang_to_break" yaml:"bang_to_break"`
	Override      bool `toml:"override" yaml:"override"`
	NoWarnings    bool `toml:"no_warnings" yaml:"no_warnings"`
	FatalWarnings bool `toml:"fatal_warnings" yaml:"fatal_warnings"`

	LibDir  string            `toml:"lib_dir" yaml:"lib_dir"`
	Symbols []string          `toml:"symbols" yaml:"symbols"`
	Defines map[string]string `toml:"defines" yaml:"defines"`
}

// Default is the configuration used without an options file.
func Default() *Config {
	c := &Config{}
	c.applyEnv()
	return c
}

// Load reads path. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	path = os.ExpandEnv(path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var c Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(content), &c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	c.applyEnv()
	return &c, nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv(EnvLibDir); dir != "" {
		c.LibDir = dir
	}
}

func (c *Config) Options() preprocessor.Options {
	return preprocessor.Options{
		Strip:         c.Strip,
		StripChords:   c.StripChords,
		PlusToBracket: c.PlusToBracket,
		PlusToBang:    c.PlusToBang,
		BangToPlus:    c.BangToPlus,
		StripBang:     c.StripBang,
		BangToBreak:   c.BangToBreak,
		Override:      c.Override,
		NoWarnings:    c.NoWarnings,
		FatalWarnings: c.FatalWarnings,
		LibDir:        c.LibDir,
	}
}

// DefineArgs returns the symbols and macros in command line form, symbols
// first, macros sorted by name.
func (c *Config) DefineArgs() []string {
	args := append([]string(nil), c.Symbols...)
	names := make([]string, 0, len(c.Defines))
	for name := range c.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, name+"="+c.Defines[name])
	}
	return args
}
