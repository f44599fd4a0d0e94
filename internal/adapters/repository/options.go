package repository

import "time"

const (
	defaultInitialPMR            = 3.5
	defaultHistorySize           = 50
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Option configures a store.
type Option func(*options)

type options struct {
	initialPMR            float64
	historySize           int
	metricsUpdateInterval time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		initialPMR:            defaultInitialPMR,
		historySize:           defaultHistorySize,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithInitialPMR sets the PMR given to players seen for the first time.
func WithInitialPMR(pmr float64) Option {
	return func(o *options) {
		if pmr > 0 {
			o.initialPMR = pmr
		}
	}
}

// WithHistorySize caps the in-memory history kept per player.
func WithHistorySize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historySize = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}
