// Package config loads the docflow configuration from a YAML file, a .env file and DOCFLOW_
// environment variables, in increasing order of precedence.
package config

import (
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/askiada/go-docflow/internal/logger"
	"github.com/askiada/go-docflow/pkg/remote"
)

const (
	EnvPrefix  = "DOCFLOW"
	ThreadsMax = "max"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the docflow configuration.
type Config struct {
	// Threads is the number of sub-tasks a stage runs at once, or max for one per CPU.
	Threads string `mapstructure:"threads" validate:"threads"`
	// Refill keeps the task pool full instead of waiting for a whole batch to finish.
	Refill bool `mapstructure:"refill"`
	// Stages overrides the required stages.
	Stages []string `mapstructure:"stages"`
	// Skip lists the stages whose work is not done again.
	Skip []string `mapstructure:"skip"`
	// Filters are spliced in the given order.
	Filters []string `mapstructure:"filters"`
	// Plugins maps a stage to the plugin performing it.
	Plugins map[string]string `mapstructure:"plugins"`
	// Options holds the options of every plugin, by plugin name.
	Options  map[string]map[string]any `mapstructure:"options"`
	Log      logger.Config             `mapstructure:"log"`
	Remote   Remote                    `mapstructure:"remote"`
	Graph    string                    `mapstructure:"graph"`
	Progress bool                      `mapstructure:"progress"`
}

// Remote configures the remote compute service. Work is offloaded only when URL is set.
type Remote struct {
	URL    string        `mapstructure:"url" validate:"omitempty,url"`
	Policy remote.Policy `mapstructure:"policy"`
}

// Parallelism resolves Threads.
func (c *Config) Parallelism() (int, error) {
	return parseThreads(c.Threads)
}

func parseThreads(threads string) (int, error) {
	if threads == "" || strings.EqualFold(threads, ThreadsMax) {
		return runtime.NumCPU(), nil
	}

	n, err := cast.ToIntE(threads)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "threads must be %s or a number, got %q", ThreadsMax, threads)
	}
	if n < 1 {
		return 0, errors.Wrapf(ErrInvalidConfig, "threads must be at least 1, got %d", n)
	}

	return n, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("threads", func(fl validator.FieldLevel) bool {
			_, err := parseThreads(fl.Field().String())
			return err == nil
		})
	})

	return validate
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "unable to validate configuration")
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Namespace()+" fails "+fe.Tag())
	}

	return errors.Wrap(ErrInvalidConfig, strings.Join(msgs, "; "))
}

type loaderConfig struct {
	configFile string
	envFile    string
	overrides  map[string]any
}

// LoaderOption is a functional option for Load.
type LoaderOption func(lc *loaderConfig)

// WithConfigFile sets the YAML file to read. Without it no file is read.
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile sets the .env file to load. Defaults to .env in the working directory, when
// present.
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// WithOverride sets key whatever the file and the environment say. Command line flags use it.
func WithOverride(key string, value any) LoaderOption {
	return func(lc *loaderConfig) {
		if lc.overrides == nil {
			lc.overrides = make(map[string]any)
		}
		lc.overrides[key] = value
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("threads", ThreadsMax)
	v.SetDefault("refill", false)
	v.SetDefault("stages", []string{})
	v.SetDefault("skip", []string{})
	v.SetDefault("filters", []string{})
	v.SetDefault("graph", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatConsole)
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.timestamp", true)
	v.SetDefault("progress", true)

	def := remote.DefaultPolicy()
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.policy.base_delay", def.BaseDelay)
	v.SetDefault("remote.policy.max_delay", def.MaxDelay)
	v.SetDefault("remote.policy.multiplier", def.Multiplier)
	v.SetDefault("remote.policy.jitter", def.Jitter)
	v.SetDefault("remote.policy.deadline", def.Deadline)
}

// Load reads the configuration and validates it.
func Load(opts ...LoaderOption) (*Config, error) {
	lc := loaderConfig{envFile: ".env"}
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.envFile != "" {
		if _, err := os.Stat(lc.envFile); err == nil {
			err = godotenv.Load(lc.envFile)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to load %s", lc.envFile)
			}
		}
	}

	v := viper.New()
	setDefaults(v)

	if lc.configFile != "" {
		v.SetConfigFile(lc.configFile)
		v.SetConfigType("yaml")
		err := v.ReadInConfig()
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read %s", lc.configFile)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range lc.overrides {
		v.Set(k, val)
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}
	cfg.Stages = splitList(cfg.Stages)
	cfg.Skip = splitList(cfg.Skip)
	cfg.Filters = splitList(cfg.Filters)

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList accepts both YAML lists and comma separated values coming from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
