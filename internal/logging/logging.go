// Package logging builds the application logger and attaches the optional
// elasticsearch and logstash shipping hooks.
package logging

import (
	"io"
	"net"
	"os"

	logrustash "github.com/bshuster-repo/logrus-logstash-hook"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/sirupsen/logrus"
	"gopkg.in/go-extras/elogrus.v7"

	"github.com/pageza/recipe-app-api/backend/config"
)

const appName = "recipe-api"

// New creates a logger configured from cfg. Hook failures are logged and skipped
// so a missing log shipper never prevents the API from starting.
func New(env config.Environment, cfg config.LogConfig) *logrus.Logger {
	return NewWithOutput(env, cfg, os.Stdout)
}

// NewWithOutput is New with an explicit writer
func NewWithOutput(env config.Environment, cfg config.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.Out = out

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" || env.UsesJSONLogs() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if cfg.ElkEnable {
		client, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{cfg.ElkURL},
		})
		if err != nil {
			logger.WithError(err).Warn("elasticsearch client unavailable")
		} else {
			hook, err := elogrus.NewAsyncElasticHook(client, appName, level, cfg.ElkIndex)
			if err != nil {
				logger.WithError(err).Warn("elasticsearch log hook unavailable")
			} else {
				logger.Hooks.Add(hook)
			}
		}
	}

	if cfg.LogstashEnable {
		conn, err := net.Dial("udp", cfg.LogstashURL)
		if err != nil {
			logger.WithError(err).Warn("logstash unreachable")
		} else {
			hook := logrustash.New(conn, logrustash.DefaultFormatter(logrus.Fields{"type": appName}))
			logger.Hooks.Add(hook)
		}
	}

	return logger
}

// Discard returns a logger that drops everything; used by tests
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}
