// Package config loads pragmax.toml. The file is looked up from the working
// directory upwards; command-line flags override its values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"pragmax/internal/accel"
	"pragmax/internal/trace"
	"pragmax/internal/xio"
)

// FileName is the configuration file looked up by Find.
const FileName = "pragmax.toml"

// Config mirrors pragmax.toml.
type Config struct {
	Accelerator Accelerator `toml:"accelerator"`
	Output      Output      `toml:"output"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Trace       Trace       `toml:"trace"`

	// Path is the file the values came from, empty for defaults.
	Path string `toml:"-"`
}

type Accelerator struct {
	Dialect string `toml:"dialect"`
	Target  string `toml:"target"`
}

type Output struct {
	Indent int    `toml:"indent"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
	Jobs   int    `toml:"jobs"`
}

type Diagnostics struct {
	Max int `toml:"max"`
}

type Trace struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	// Mode is stream, ring or both; ring history is dumped for failed documents.
	Mode     string `toml:"mode"`
	RingSize int    `toml:"ring_size"`
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{
		Accelerator: Accelerator{Dialect: "none", Target: "cpu"},
		Output:      Output{Indent: 2, Format: "auto"},
		Diagnostics: Diagnostics{Max: 100},
		Trace:       Trace{Level: "off", Output: "stderr", Mode: "stream"},
	}
}

// Find walks up from startDir to locate pragmax.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults. Unknown keys and invalid values are
// errors.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("output", "indent") && cfg.Output.Indent < 0 {
		return Config{}, fmt.Errorf("%s: [output].indent must not be negative", path)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads the nearest pragmax.toml above startDir, or the defaults.
func Resolve(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks that every value parses.
func (c Config) Validate() error {
	var errs []error
	if _, err := accel.ParseDialect(c.Accelerator.Dialect); err != nil {
		errs = append(errs, fmt.Errorf("[accelerator].dialect: %w", err))
	}
	if _, err := accel.ParseTarget(c.Accelerator.Target); err != nil {
		errs = append(errs, fmt.Errorf("[accelerator].target: %w", err))
	}
	if _, err := xio.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, fmt.Errorf("[output].format: %w", err))
	}
	if c.Output.Jobs < 0 {
		errs = append(errs, errors.New("[output].jobs must not be negative"))
	}
	if c.Diagnostics.Max < 0 {
		errs = append(errs, errors.New("[diagnostics].max must not be negative"))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("[trace].level: %w", err))
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("[trace].mode: %w", err))
	}
	if c.Trace.RingSize < 0 {
		errs = append(errs, errors.New("[trace].ring_size must not be negative"))
	}
	return errors.Join(errs...)
}

// Generator builds the accelerator directive generator of the configuration.
func (c Config) Generator() (accel.Generator, error) {
	d, err := accel.ParseDialect(c.Accelerator.Dialect)
	if err != nil {
		return nil, err
	}
	t, err := accel.ParseTarget(c.Accelerator.Target)
	if err != nil {
		return nil, err
	}
	return accel.New(d, t), nil
}

// Format returns the configured document format.
func (c Config) Format() xio.Format {
	f, _ := xio.ParseFormat(c.Output.Format)
	return f
}
