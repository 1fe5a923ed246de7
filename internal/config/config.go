package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	BotToken        string
	BotAPIBase      string
	AdminToken      string
	SellerIDs       []string
	ClaimLimit      int
	PollInterval    time.Duration
	SendDelay       time.Duration
	QueueCapacity   int
	ShutdownTimeout time.Duration
}

const (
	defaultRunAddress      = ":8080"
	defaultBotAPIBase      = "https://api.telegram.org"
	defaultClaimLimit      = 2
	defaultPollInterval    = 5 * time.Second
	defaultSendDelay       = 500 * time.Millisecond
	defaultQueueCapacity   = 128
	defaultShutdownTimeout = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:      getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:     getString(lookup, "DATABASE_URI", ""),
		BotToken:        getString(lookup, "BOT_TOKEN", ""),
		BotAPIBase:      getString(lookup, "BOT_API_BASE", defaultBotAPIBase),
		AdminToken:      getString(lookup, "ADMIN_TOKEN", ""),
		SellerIDs:       splitIDs(getString(lookup, "SELLER_IDS", "")),
		ClaimLimit:      getInt(lookup, "CLAIM_LIMIT", defaultClaimLimit),
		PollInterval:    getDuration(lookup, "POLL_INTERVAL", defaultPollInterval),
		SendDelay:       getDuration(lookup, "SEND_DELAY", defaultSendDelay),
		QueueCapacity:   getInt(lookup, "QUEUE_CAPACITY", defaultQueueCapacity),
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("resalebot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		pollIntervalStr    = cfg.PollInterval.String()
		sendDelayStr       = cfg.SendDelay.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		sellerIDsStr       = strings.Join(cfg.SellerIDs, ",")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "Database DSN (postgres:// or sqlite path)")
	fs.StringVar(&cfg.BotToken, "bot-token", cfg.BotToken, "Telegram bot token")
	fs.StringVar(&cfg.BotAPIBase, "bot-api", cfg.BotAPIBase, "Telegram Bot API base URL")
	fs.StringVar(&cfg.AdminToken, "admin-token", cfg.AdminToken, "Token protecting admin endpoints")
	fs.StringVar(&sellerIDsStr, "sellers", sellerIDsStr, "Comma-separated seller chat ids seeded as active")
	fs.IntVar(&cfg.ClaimLimit, "claim-limit", cfg.ClaimLimit, "Maximum concurrent accepted orders per seller")
	fs.StringVar(&pollIntervalStr, "poll-interval", pollIntervalStr, "Interval between unnotified-order polls")
	fs.StringVar(&sendDelayStr, "send-delay", sendDelayStr, "Delay between per-seller sends")
	fs.IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "Notification queue capacity")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.PollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}
	if cfg.SendDelay, err = time.ParseDuration(sendDelayStr); err != nil {
		return nil, fmt.Errorf("invalid send delay: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	cfg.SellerIDs = splitIDs(sellerIDsStr)

	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = defaultClaimLimit
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.SendDelay <= 0 {
		cfg.SendDelay = defaultSendDelay
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token must be provided")
	}

	return cfg, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
