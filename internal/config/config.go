package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// DefaultFileName is looked up in the working directory when no
// configuration file is given.
const DefaultFileName = "ember.toml"

// Emit is the kind of output a build produces.
type Emit string

const (
	EmitIR   Emit = "ir"
	EmitAsm  Emit = "asm"
	EmitObj  Emit = "obj"
	EmitExec Emit = "exec"
)

var emitExtensions = map[Emit]string{
	EmitIR:   ".ll",
	EmitAsm:  ".s",
	EmitObj:  ".o",
	EmitExec: "",
}

// Config is the build configuration. Values set on the command line
// override the ones loaded from a file.
type Config struct {
	Sources  []string `toml:"sources"`
	Output   string   `toml:"output"`
	Emit     Emit     `toml:"emit"`
	Optimize bool     `toml:"optimize"`
	Color    bool     `toml:"color"`
	Policy   string   `toml:"policy"`
	LogLevel string   `toml:"loglevel"`
	Target   string   `toml:"target"`
	LLC      string   `toml:"llc"`
	Linker   string   `toml:"linker"`
}

func Default() *Config {
	return &Config{
		Emit:     EmitExec,
		Color:    true,
		Policy:   "collect",
		LogLevel: "verbose",
		LLC:      "llc",
		Linker:   "cc",
	}
}

// Load reads a configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading configuration")
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parsing configuration")
	}

	return c, c.Validate()
}

func (c *Config) Validate() error {
	if _, ok := emitExtensions[c.Emit]; !ok {
		return errors.Errorf("unknown output kind %q, want one of ir, asm, obj, exec", c.Emit)
	}

	switch c.Policy {
	case "collect", "abort":
	default:
		return errors.Errorf("unknown diagnostic policy %q, want collect or abort", c.Policy)
	}

	switch c.LogLevel {
	case "silent", "error", "warning", "verbose", "debug":
	default:
		return errors.Errorf("unknown log level %q", c.LogLevel)
	}

	if c.Output != "" && len(c.Sources) > 1 {
		return errors.New("an output path can only be given for a single source")
	}

	for _, src := range c.Sources {
		if strings.TrimSpace(src) == "" {
			return errors.New("empty source path")
		}
	}

	return nil
}

// OutputPath is where the build of source is written.
func (c *Config) OutputPath(source string) string {
	if c.Output != "" {
		return c.Output
	}

	out := strings.TrimSuffix(source, filepath.Ext(source)) + emitExtensions[c.Emit]
	if out == source {
		out += ".out"
	}

	return out
}
