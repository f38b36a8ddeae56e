/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the stdfkit commands. Provides configuration loading,
logging setup and the decode step every command starts with.
*/

package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/stdfkit/pkg/logging"
	"github.com/kleascm/stdfkit/pkg/stdf"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	// Set config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrap(err, "failed to read config file")
		}
	}

	// STDFKIT_WORKERS, STDFKIT_EXPORT_FORMAT, ...
	viper.SetEnvPrefix("STDFKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return nil
}

// SetupLogging builds the logger from the loaded configuration
func SetupLogging() (*logging.Logger, error) {
	config := &logging.LoggerConfig{
		Level:     logging.LogLevel(viper.GetString("log_level")),
		Format:    logging.LogFormat(viper.GetString("log_format")),
		OutputDir: viper.GetString("log_dir"),
		MaxFiles:  viper.GetInt("log_max_files"),
		MaxSize:   viper.GetInt64("log_max_size"),
		Compress:  viper.GetBool("log_compress"),
		Timestamp: true,
		Colors:    true,
	}

	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup logging")
	}
	return logger, nil
}

// decodeOptions maps the configuration onto decoder options
func decodeOptions(logger *logging.Logger) stdf.Options {
	return stdf.Options{
		Workers:         viper.GetInt("workers"),
		MaxRecordLength: viper.GetInt("max_record_length"),
		Logger:          logger.GetLogger(),
	}
}

// decodeInput loads configuration, sets up logging and decodes path.
// The caller closes the returned logger.
func decodeInput(cmd *cobra.Command, path string) (*stdf.Result, *logging.Logger, error) {
	if err := LoadConfig(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}
	logger, err := SetupLogging()
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Close()
		return nil, nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	opts := decodeOptions(logger)
	logger.LogDecodeStart(path, info.Size(), opts.Workers)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	res, err := stdf.DecodeFile(ctx, path, opts)
	if err != nil {
		logger.Close()
		return nil, nil, err
	}

	for _, w := range res.Warnings {
		logger.LogWarning(w)
	}
	logger.LogSummary(path, res, time.Since(start))
	return res, logger, nil
}

// baseName strips directories and known datalog extensions from path
func baseName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gz", ".zst", ".lz4", ".stdf", ".std"} {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "." {
		return "datalog"
	}
	return name
}
