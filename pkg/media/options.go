package media

import (
	"log/slog"
	"time"

	"github.com/tendant/venue-admin/pkg/media/objectkey"
)

const defaultDeleteTimeout = 30 * time.Second

type settings struct {
	logger        *slog.Logger
	observer      Observer
	names         objectkey.Generator
	deleteTimeout time.Duration
}

// Option configures an Uploader or Cleaner
type Option func(*settings)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithObserver sets the metrics observer
func WithObserver(observer Observer) Option {
	return func(s *settings) {
		s.observer = observer
	}
}

// WithNameGenerator replaces the default timestamp+token object names
func WithNameGenerator(gen objectkey.Generator) Option {
	return func(s *settings) {
		s.names = gen
	}
}

// WithDeleteTimeout bounds each background delete
func WithDeleteTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.deleteTimeout = d
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:        slog.Default(),
		observer:      nopObserver{},
		names:         objectkey.NewTimestampGenerator(),
		deleteTimeout: defaultDeleteTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.names == nil {
		s.names = objectkey.NewTimestampGenerator()
	}
	if s.deleteTimeout <= 0 {
		s.deleteTimeout = defaultDeleteTimeout
	}
	return s
}
