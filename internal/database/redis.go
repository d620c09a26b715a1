package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pageza/recipe-app-api/backend/config"
)

const redisDialTimeout = 5 * time.Second

// redisOptions builds client options; a redis URL takes precedence over host and port
func redisOptions(cfg *config.Config) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:        net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: redisDialTimeout,
	}, nil
}

// NewRedisClient connects to redis and verifies the connection with a ping.
// The caller owns the returned client.
func NewRedisClient(cfg *config.Config, log *logrus.Logger) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	log.WithFields(logrus.Fields{"addr": opts.Addr, "db": opts.DB}).Info("connected to redis")
	return client, nil
}
