package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/nijaru/yt-summary/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configures the standard logrus logger from cfg. When cfg.LogDir is
// set, output is also written to a rotating file in that directory; the
// returned Closer releases it.
func Setup(cfg *config.Config) (io.Closer, error) {
	return setup(logrus.StandardLogger(), cfg, os.Stdout)
}

// SetupTo is Setup with console output sent to w. The CLI commands log to
// stderr so stdout carries only the result.
func SetupTo(cfg *config.Config, w io.Writer) (io.Closer, error) {
	return setup(logrus.StandardLogger(), cfg, w)
}

func setup(log *logrus.Logger, cfg *config.Config, stdout io.Writer) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	log.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("unknown log format %q", cfg.LogFormat)
	}

	if cfg.LogDir == "" {
		log.SetOutput(stdout)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(cfg.LogDir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "error creating log directory")
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "app.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(stdout, logFile))

	return logFile, nil
}
