package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sanspareilsmyn/mongolens/internal/config"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	ErrNoOutputs         = errors.New("no logging outputs configured")
	ErrLogDirectory      = errors.New("failed to create log directory")
	ErrUnknownFormat     = errors.New("unknown log format")
	ErrInvalidLevelValue = errors.New("invalid log level")
)

// NewLogger builds a zap logger from cfg. The console format writes colored
// lines to stdout (below Error) and stderr (Error and above); the json format
// writes JSON lines to stdout; an empty format disables terminal output. A
// rotating JSON file is added when file logging is enabled.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %v, defaulting to INFO level\n", err)
		level = zapcore.InfoLevel
	}

	format := strings.ToLower(cfg.Format)
	cores, err := terminalCores(format, level)
	if err != nil {
		return nil, err
	}

	if cfg.FileLoggingEnabled {
		core, err := fileCore(cfg, level)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}

	if len(cores) == 0 {
		return nil, ErrNoOutputs
	}

	development := level == zapcore.DebugLevel || format == FormatConsole
	opts := []zap.Option{zap.AddCaller()}
	if development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), opts...)
	logger.Debug("Zap logger constructed",
		zap.String("level", level.String()),
		zap.String("format", format),
		zap.Bool("file_logging_enabled", cfg.FileLoggingEnabled),
		zap.Bool("development_mode", development),
	)
	return logger, nil
}

func terminalCores(format string, level zapcore.Level) ([]zapcore.Core, error) {
	switch format {
	case "":
		return nil, nil
	case FormatJSON:
		return []zapcore.Core{zapcore.NewCore(buildEncoder(false), zapcore.Lock(os.Stdout), level)}, nil
	case FormatConsole:
		encoder := buildEncoder(true)
		stdout := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= level && lvl < zapcore.ErrorLevel
		}))
		stderr := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= level && lvl >= zapcore.ErrorLevel
		}))
		return []zapcore.Core{stdout, stderr}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func fileCore(cfg config.LogConfig, level zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLogDirectory, cfg.Directory, err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, cfg.Filename),
		MaxSize:    cfg.MaxSize,    // megabytes
		MaxBackups: cfg.MaxBackups, // files
		MaxAge:     cfg.MaxAge,     // days
		Compress:   cfg.Compress,
	}
	return zapcore.NewCore(buildEncoder(false), zapcore.AddSync(rotator), level), nil
}

func parseLevel(raw string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("%w '%s'", ErrInvalidLevelValue, raw)
	}
	return level, nil
}

func buildEncoder(console bool) zapcore.Encoder {
	if console {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// Sync flushes logger, ignoring the error terminals return for fsync.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF) {
		return nil
	}
	return err
}
