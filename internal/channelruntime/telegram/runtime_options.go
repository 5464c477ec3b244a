package telegram

import (
	"strings"
	"time"
)

type Options struct {
	BotToken string
	// BaseURL overrides the Bot API host, mainly for tests.
	BaseURL       string
	PollTimeout   time.Duration
	MaxImageBytes int64
}

func normalizeOptions(opts Options) Options {
	opts.BotToken = strings.TrimSpace(opts.BotToken)
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")

	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.telegram.org"
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 20 * 1024 * 1024
	}
	return opts
}
