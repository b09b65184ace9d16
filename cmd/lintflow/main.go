package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/gophersatwork/lintflow"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	path         string
	taskName     string
	outputFormat string
	parallel     bool
	watch        bool
	verbose      bool
)

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lintflow/lintflow.yml)")
	rootCmd.PersistentFlags().StringVar(&path, "path", ".", "project root to lint")
	rootCmd.PersistentFlags().StringVar(&taskName, "task", "lint", "task name used for cache scoping")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "color", "output format (text, color, json, checkstyle)")
	rootCmd.PersistentFlags().BoolVar(&parallel, "parallel", false, "analyze files with a worker pool")
	rootCmd.PersistentFlags().BoolVar(&watch, "watch", false, "watch for changes and re-analyze")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		logFile, logErr := setupLogFile()
		var logger *slog.Logger

		// Fall back to stderr if we can't create the log file
		if logErr != nil {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))
			logger.Error("Failed to set up log file, falling back to stderr", "error", logErr)
		} else {
			defer logFile.Close()
			logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))
		}

		info, found := lintflow.GetErrorInfo(err)
		if found {
			logger.Error("Command failed", "error_type", info.Type)

			if info.Details != "" {
				logger.Error("Additional details", "details", info.Details)
			}

			if info.File != "" {
				logger.Error("File information", "file", info.File)
			}
		} else if errors.Is(err, lintflow.ErrLint) {
			logger.Error("Lint failed",
				"message", "The analyzed files contain rule violations with error severity")
		} else {
			logger.Error("Command failed", "error", err)
		}

		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lintflow",
	Short: "A cached lint step for build pipelines",
	Long:  `Lintflow runs configurable analyzers over Go source files, caching clean results so unchanged files are not re-analyzed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel := slog.LevelInfo
		if verbose {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))

		fs := afero.NewOsFs()

		if watch {
			wm, err := lintflow.NewWatchMode(path, lintflow.WatchConfig{
				TaskName:   taskName,
				ConfigPath: cfgFile,
				Logger:     logger,
				FS:         fs,
			})
			if err != nil {
				return err
			}
			defer wm.Stop()
			return wm.Start(cmd.Context(), path)
		}

		cfg, err := lintflow.LoadConfig(fs, path, cfgFile)
		if err != nil {
			logger.Error("Failed to load configuration", "error", err)
			return err
		}

		result, err := runTask(cmd.Context(), cfg, logger, fs)
		if err != nil {
			logger.Error("Lint run failed", "error", err)
			return err
		}

		formatter, err := lintflow.NewFormatter(lintflow.OutputFormat(outputFormat))
		if err != nil {
			return err
		}
		out, err := formatter.Format(result, &cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))

		if result.HasErrors() && !cfg.WarningsOnly {
			return lintflow.ErrLint
		}
		return nil
	},
}

func runTask(ctx context.Context, cfg lintflow.Config, logger *slog.Logger, fs afero.Fs) (*lintflow.Result, error) {
	if parallel {
		task, err := lintflow.NewConcurrentTask(taskName, cfg, logger, fs)
		if err != nil {
			return nil, err
		}
		return task.RunWithContext(ctx, path)
	}

	task := lintflow.NewTask(taskName, cfg, logger, fs)
	return task.Run(path)
}

// setupLogFile creates the .lintflow directory if it doesn't exist and returns a file handle for the log file
func setupLogFile() (*os.File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	lintflowDir := lintflow.JoinPaths(home, ".lintflow")
	if err := os.MkdirAll(lintflowDir, 0o755); err != nil {
		return nil, err
	}

	logFile := lintflow.JoinPaths(lintflowDir, "lintflow.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return file, nil
}
