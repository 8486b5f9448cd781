// Package config holds the agent configuration read by viper and its validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/spigell/jobapplier/internal/scoring"
	"github.com/spigell/jobapplier/internal/sources"
	"github.com/spigell/jobapplier/internal/state"
)

const (
	DefaultChannel     = "cli"
	DefaultProfilePath = "profile.yaml"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = newValidator()

type Config struct {
	JobSources    []SourceConfig      `mapstructure:"job_sources" validate:"required,min=1,dive"`
	Limit         int                 `mapstructure:"limit" validate:"gte=0"`
	Profile       string              `mapstructure:"profile"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Scoring       map[string]float64  `mapstructure:"scoring"`
	Approvals     ApprovalsConfig     `mapstructure:"approvals"`
	Watch         WatchConfig         `mapstructure:"watch"`
}

type SourceConfig struct {
	Type    string         `mapstructure:"type" validate:"required"`
	Name    string         `mapstructure:"name"`
	Options map[string]any `mapstructure:"options"`
}

type NotificationsConfig struct {
	Channel string         `mapstructure:"channel" validate:"omitempty,oneof=cli auto telegram ai"`
	Options map[string]any `mapstructure:"options"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=json sqlite postgres redis"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn" validate:"required_if=Driver postgres,required_if=Driver redis"`
	Prefix string `mapstructure:"prefix"`
}

type ApprovalsConfig struct {
	MinScore         float64  `mapstructure:"min_score"`
	ExcludeCompanies []string `mapstructure:"exclude_companies"`
	RedFlags         []string `mapstructure:"red_flags"`
}

type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// SetDefaults registers defaults so that env overrides work for these keys too.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("limit", sources.DefaultLimit)
	v.SetDefault("profile", DefaultProfilePath)
	v.SetDefault("notifications.channel", DefaultChannel)
	v.SetDefault("storage.driver", state.DriverJSON)
	v.SetDefault("storage.path", state.DefaultPath)
	v.SetDefault("storage.prefix", state.DefaultPrefix)
	v.SetDefault("approvals.min_score", 0)
	v.SetDefault("watch.schedule", "@every 1h")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cfg.Storage.Path = os.ExpandEnv(cfg.Storage.Path)
	cfg.Storage.DSN = os.ExpandEnv(cfg.Storage.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration before anything is built from it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}

	names := make(map[string]struct{}, len(c.JobSources))
	for _, src := range c.JobSources {
		name := src.SourceName()
		if _, dup := names[name]; dup {
			return fmt.Errorf("%w: job source name %q is used more than once", ErrInvalid, name)
		}
		names[name] = struct{}{}
	}

	if _, err := c.Weights(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return nil
}

// SourceName is the configured name, defaulting to the adapter type.
func (s SourceConfig) SourceName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return strings.ToLower(strings.TrimSpace(s.Type))
}

// Weights merges the scoring overrides over the defaults.
func (c *Config) Weights() (scoring.Weights, error) {
	return scoring.DefaultWeights().Merge(c.Scoring)
}

func (c *Config) StateConfig() state.Config {
	return state.Config{
		Driver: c.Storage.Driver,
		Path:   c.Storage.Path,
		DSN:    c.Storage.DSN,
		Prefix: c.Storage.Prefix,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// describe turns validator errors into short messages keyed by config path.
func describe(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		path := e.Namespace()
		if idx := strings.Index(path, "."); idx != -1 {
			path = path[idx+1:]
		}

		switch e.Tag() {
		case "required", "required_if":
			messages = append(messages, fmt.Sprintf("%s is required", path))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must have at least %s entries", path, e.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", path, e.Param()))
		case "gte":
			messages = append(messages, fmt.Sprintf("%s must be greater than or equal to %s", path, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid: %s", path, e.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}
