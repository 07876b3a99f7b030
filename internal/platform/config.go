package platform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the project configuration file looked up in the
// working directory.
const ConfigFileName = "kiln.yml"

// Config mirrors the kiln.yml file. Every field is optional;
// command-line flags take precedence over it.
type Config struct {
	Source   string   `yaml:"source"`
	Output   string   `yaml:"output"`
	Template string   `yaml:"template"`
	FeedExt  string   `yaml:"feed_ext"`
	Exclude  []string `yaml:"exclude"`
	Jobs     int      `yaml:"jobs"`
}

// LoadConfig reads a configuration file. A missing file is not an
// error: it returns a zero Config and found=false.
func LoadConfig(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, true, nil
}

// Options converts the file configuration into functional options.
// Zero-valued fields produce no option, so defaults still apply.
func (c Config) Options() []Option {
	var opts []Option
	if c.Output != "" {
		opts = append(opts, WithOutputDir(c.Output))
	}
	if c.Template != "" {
		opts = append(opts, WithDefaultTemplate(c.Template))
	}
	if c.FeedExt != "" {
		opts = append(opts, WithFeedExtension(c.FeedExt))
	}
	if len(c.Exclude) > 0 {
		opts = append(opts, WithExclude(c.Exclude...))
	}
	if c.Jobs > 0 {
		opts = append(opts, WithConcurrency(c.Jobs))
	}
	return opts
}
