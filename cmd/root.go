package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/config"
	"github.com/spigell/jobapplier/internal/logger"
	"github.com/spigell/jobapplier/internal/profile"
)

const (
	app       = "jobapplier"
	envPrefix = "JOBAPPLIER"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobapplier searches job boards, scores postings against your profile and applies after approval",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobapplier.yaml in current directory)")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "a candidate profile file (default is profile.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// loadConfig reads and validates the config file. Only commands that need it call this.
func loadConfig() (*config.Config, error) {
	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return config.Load(viper.GetViper())
}

// loadInputs loads the config and the profile or exits.
func loadInputs(l *zap.Logger) (*config.Config, *profile.Profile) {
	cfg, err := loadConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	prof, err := profile.Load(cfg.Profile)
	if err != nil {
		l.Fatal("loading a profile", zap.Error(err), zap.String("path", cfg.Profile))
	}

	return cfg, prof
}
