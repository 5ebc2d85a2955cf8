package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "portal",
	Short:         "Employee Portal",
	Long:          `Command-line client for the employee portal: employees, products, orders and ETH wallets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

// errorLine prefers the detailed validation message over the generic one.
func errorLine(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return fmt.Sprintf("error [%s]: %s", appErr.Code, appErr.GetDetailedMessage())
	}
	return "error: " + err.Error()
}

func loadConfig(path string) (*internal.Config, error) {
	// Check if we're running in a container
	if os.Getenv("APP_ENV") == "production" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := internal.DefaultConfig()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.image_base_url", def.API.ImageBaseURL)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("api.headers", def.API.Headers)
	v.SetDefault("storage.driver", def.Storage.Driver)
	v.SetDefault("storage.source", def.Storage.Source)
	v.SetDefault("storage.passphrase", def.Storage.Passphrase)
	v.SetDefault("storage.max_open_conns", def.Storage.MaxOpenConns)
	v.SetDefault("observability.logging.level", def.Observability.Logging.Level)
	v.SetDefault("observability.logging.format", def.Observability.Logging.Format)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding config.yml")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(employeesCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(docsCmd)
}
