package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/opendatabs/odsync/internal/config"
	"github.com/opendatabs/odsync/internal/utils"
	"github.com/opendatabs/odsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "ODSYNC"
	configFileName = "config"
)

var (
	home, _ = os.UserHomeDir()

	// cfg is loaded before every command that needs it.
	cfg *config.Config
	// logFile receives a copy of all log lines once the config is known.
	logFile   *os.File
	logWriter *utils.LogFileWriter
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "odsync",
		Short:   "Publish changed open data artifacts",
		Version: version.Detailed(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = loadConfig(cmd); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return setupFileLog(cfg.LogFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			slog.Info("job successful")
		},
	}

	root.PersistentFlags().SortFlags = false
	root.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "odsync config file")
	root.PersistentFlags().String("state-dir", config.DefaultStateDir, "Directory holding fingerprints and logs")
	root.PersistentFlags().String("store", config.StoreJournal, "Fingerprint store: journal or hashfiles")
	root.PersistentFlags().String("algorithm", "", "Fingerprint hash: md5, sha256 or blake3")
	root.PersistentFlags().String("env-file", ".env", "dotenv file with credentials")
	return root
}

func main() {
	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(stdoutHandler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		slog.Error("job failed", "error", err)
	}
	closeFileLog()
	if err != nil {
		os.Exit(1)
	}
}

// setupFileLog fans log records out to the terminal handler and a text
// handler writing numbered lines into path.
func setupFileLog(path string) error {
	if path == "" || logFile != nil {
		return nil
	}
	if err := utils.EnsureParent(path); err != nil {
		return fmt.Errorf("log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	writer := utils.NewLogFileWriter(file)
	fileHandler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the writer stamps each line itself
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	logFile, logWriter = file, writer
	slog.SetDefault(slog.New(utils.NewFanoutHandler(slog.Default().Handler(), fileHandler)))
	return nil
}

func closeFileLog() {
	if logWriter != nil {
		_ = logWriter.Close()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile, logWriter = nil, nil
}

// loadConfig merges, lowest first: defaults, config file, dotenv file,
// environment (ODSYNC_*) and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	if f := cmd.Flag("env-file"); f != nil && f.Value.String() != "" {
		envFile := f.Value.String()
		// dotenv never overrides variables already set
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("env file '%s': %w", envFile, err)
		}
	}

	if f := cmd.Flag("config"); f != nil && f.Changed {
		v.SetConfigFile(f.Value.String())
	} else if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".odsync"))
		v.AddConfigPath(filepath.Join(home, ".config", "odsync"))
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	def := config.Default()
	v.SetDefault("state_dir", def.StateDir)
	v.SetDefault("store", def.Store)
	v.SetDefault("algorithm", def.Algorithm)
	v.SetDefault("ods.base_url", def.ODS.BaseURL)
	v.SetDefault("ods.publish_delay", def.ODS.PublishDelay)
	v.SetDefault("ftp.port", 0)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// nested keys need an explicit binding to be visible to AutomaticEnv lookups
	for _, key := range []string{
		"log_file",
		"ftp.host", "ftp.port", "ftp.user", "ftp.password", "ftp.timeout",
		"s3.bucket", "s3.region", "s3.access_key", "s3.secret_key", "s3.endpoint", "s3.prefix",
		"ods.base_url", "ods.api_key", "ods.timeout", "ods.publish_delay",
	} {
		_ = v.BindEnv(key)
	}

	bindFlag(v, cmd, "state_dir", "state-dir")
	bindFlag(v, cmd, "store", "store")
	bindFlag(v, cmd, "algorithm", "algorithm")

	c := &config.Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	c.Path = v.ConfigFileUsed()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", c.Path, "config", c.Masked())
	return c, nil
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if f := cmd.Flag(flag); f != nil {
		_ = v.BindPFlag(key, f)
	}
}
