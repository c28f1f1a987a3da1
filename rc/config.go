package rc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like
// "30s", "5m" rather than the bare nanosecond int yaml.v3 would otherwise
// expect.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Config holds persistent runtime configuration loaded from
// <root>/rc.yaml: default timeouts and the extra directories searched
// for init scripts beyond the root's own init.d.
type Config struct {
	ScriptDirs    []string `yaml:"script_dirs"`
	StartTimeout  Duration `yaml:"start_timeout"`
	StopTimeout   Duration `yaml:"stop_timeout"`
	WaitPollEvery Duration `yaml:"wait_poll_every"`
}

// DefaultConfig returns the configuration used when no rc.yaml exists.
func DefaultConfig() Config {
	return Config{
		StartTimeout:  Duration{30 * time.Second},
		StopTimeout:   Duration{30 * time.Second},
		WaitPollEvery: Duration{20 * time.Millisecond},
	}
}

// LoadConfig reads a YAML config file from path. A missing file yields
// DefaultConfig with no error, matching how the runtime treats every
// other optional on-disk input.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigPath returns the default config file path for a given rc root.
func ConfigPath(root string) string {
	return filepath.Join(root, "rc.yaml")
}
