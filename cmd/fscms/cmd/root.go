package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/fscms"
	"github.com/aweris/fscms/internal/codec"
	"github.com/aweris/fscms/internal/content"
	"github.com/aweris/fscms/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "fscms",
	Short:        "Flat-file content store CLI",
	Long:         "CLI for managing posts stored as JSON documents under a root folder.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/fscms/config.yaml)")
	flags.String("root", "", "store root folder (default: ~/.local/share/fscms)")
	flags.Int64("caller", fscms.DefaultCaller, "id stamped as creator on new posts")
	flags.String("language", fscms.DefaultLanguage, "caller language")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Bool("log-pretty", false, "human-readable log output")
	flags.Int("concurrency", content.DefaultConcurrency, "documents parsed in parallel when listing")

	viper.BindPFlag("root", flags.Lookup("root"))
	viper.BindPFlag("caller", flags.Lookup("caller"))
	viper.BindPFlag("language", flags.Lookup("language"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_pretty", flags.Lookup("log-pretty"))
	viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FSCMS")
	viper.AutomaticEnv()
	viper.SetDefault("root", defaultRoot())

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fscms")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "fscms")
	}
	return ".fscms"
}

func defaultRoot() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "fscms")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "fscms")
	}
	return ".fscms"
}

func getRoot() string {
	return viper.GetString("root")
}

func newLogger() zerolog.Logger {
	return logger.New(logger.Config{
		Level:  viper.GetString("log_level"),
		Pretty: viper.GetBool("log_pretty"),
	})
}

func openOptions() []fscms.OpenOption {
	return []fscms.OpenOption{
		fscms.WithCaller(viper.GetInt64("caller")),
		fscms.WithLanguage(viper.GetString("language")),
		fscms.WithConcurrency(viper.GetInt("concurrency")),
		fscms.WithLogger(newLogger()),
	}
}

func openRepo() (*fscms.Repository, error) {
	return fscms.Open(getRoot(), openOptions()...)
}

func printJSON(w io.Writer, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
