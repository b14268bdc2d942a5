package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func defaultOptions() *Options {
	return &Options{
		Listen:       "127.0.0.1:9477",
		SnapshotTTL:  2 * time.Minute,
		MaxSnapshots: 64,
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       zerolog.Nop(),
	}
}

type Options struct {
	Listen       string
	SnapshotTTL  time.Duration
	MaxSnapshots uint64
	Gatherer     prometheus.Gatherer
	Logger       zerolog.Logger
}

type Option func(*Options)

func WithListen(addr string) Option {
	return func(opts *Options) {
		opts.Listen = addr
	}
}

func WithSnapshotTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.SnapshotTTL = ttl
	}
}

func WithMaxSnapshots(n uint64) Option {
	return func(opts *Options) {
		opts.MaxSnapshots = n
	}
}

func WithGatherer(g prometheus.Gatherer) Option {
	return func(opts *Options) {
		opts.Gatherer = g
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = l
	}
}
