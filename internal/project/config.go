// Package project loads retype.toml and describes the functions of a run
// and the calls between them.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"retype/internal/cgraph"
	"retype/internal/schema"
)

// ErrBadValue marks a configuration value outside its domain.
var ErrBadValue = errors.New("invalid configuration value")

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// SolveConfig is the [solve] section.
type SolveConfig struct {
	PointerSize   int      `toml:"pointer_size"`
	Interesting   []string `toml:"interesting"`
	MaxOffsetSpan int64    `toml:"max_offset_span"`
	Jobs          int      `toml:"jobs"`
}

// OutputConfig is the [output] section.
type OutputConfig struct {
	Format  string `toml:"format"`
	Unicode bool   `toml:"unicode"`
}

// CacheConfig is the [cache] section.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Config is a decoded retype.toml. Path is empty for the defaults.
type Config struct {
	Solve  SolveConfig  `toml:"solve"`
	Output OutputConfig `toml:"output"`
	Cache  CacheConfig  `toml:"cache"`
	Path   string       `toml:"-"`
}

// Default returns the configuration used without a retype.toml.
func Default() Config {
	return Config{
		Solve:  SolveConfig{PointerSize: 8},
		Output: OutputConfig{Format: FormatText},
		Cache:  CacheConfig{Enabled: true},
	}
}

// Load finds retype.toml above dir and decodes it. Without one it returns
// the defaults.
func Load(dir string) (Config, error) {
	path, ok, err := FindConfig(dir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile decodes one configuration file. Keys the file leaves out keep
// their defaults; unknown keys are errors.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	if cfg.Cache.Dir != "" && !filepath.IsAbs(cfg.Cache.Dir) {
		cfg.Cache.Dir = filepath.Join(filepath.Dir(path), cfg.Cache.Dir)
	}
	return cfg, nil
}

// Decode parses configuration text over the defaults.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown key %s", strings.Join(keys, ", "))
	}
	if meta.IsDefined("solve", "pointer_size") && cfg.Solve.PointerSize == 0 {
		return Config{}, fmt.Errorf("%w: [solve].pointer_size must be set to a width, not 0", ErrBadValue)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value domains.
func (c Config) Validate() error {
	switch c.Solve.PointerSize {
	case 0, 1, 2, 4, 8, 16:
	default:
		return fmt.Errorf("%w: [solve].pointer_size = %d", ErrBadValue, c.Solve.PointerSize)
	}
	if c.Solve.MaxOffsetSpan < 0 {
		return fmt.Errorf("%w: [solve].max_offset_span = %d", ErrBadValue, c.Solve.MaxOffsetSpan)
	}
	if c.Solve.Jobs < 0 {
		return fmt.Errorf("%w: [solve].jobs = %d", ErrBadValue, c.Solve.Jobs)
	}
	if !slices.Contains([]string{FormatText, FormatJSON, FormatYAML}, c.Output.Format) {
		return fmt.Errorf("%w: [output].format = %q (expected: text|json|yaml)", ErrBadValue, c.Output.Format)
	}
	for _, name := range c.Solve.Interesting {
		if _, err := schema.ParseVar(name); err != nil {
			return fmt.Errorf("%w: [solve].interesting entry %q: %v", ErrBadValue, name, err)
		}
	}
	return nil
}

// GraphOptions maps the solve section onto graph options.
func (c Config) GraphOptions() cgraph.Options {
	ps, err := safecast.Conv[uint32](c.Solve.PointerSize)
	if err != nil {
		ps = 0
	}
	return cgraph.Options{PointerSize: ps, MaxOffsetSpan: c.Solve.MaxOffsetSpan}
}

// InterestingVars parses the default interesting set.
func (c Config) InterestingVars() []schema.TypeVariable {
	out := make([]schema.TypeVariable, 0, len(c.Solve.Interesting))
	for _, name := range c.Solve.Interesting {
		if tv, err := schema.ParseVar(name); err == nil {
			out = append(out, tv)
		}
	}
	return out
}

// Digest hashes the settings that change solver output.
func (c Config) Digest() Digest {
	var b strings.Builder
	fmt.Fprintf(&b, "pointer_size=%d\nmax_offset_span=%d\n", c.Solve.PointerSize, c.Solve.MaxOffsetSpan)
	interesting := slices.Clone(c.Solve.Interesting)
	slices.Sort(interesting)
	fmt.Fprintf(&b, "interesting=%s\n", strings.Join(interesting, " "))
	return Sum([]byte(b.String()))
}
