package runner

import (
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/loadsweep/internal/browser"
)

// DefaultNavigationTimeout bounds a navigation when Options leaves it unset.
const DefaultNavigationTimeout = 30 * time.Second

// Options configure the Sampler.
type Options struct {
	Target            string           // URL every client navigates to (required)
	Launcher          browser.Launcher // session factory (required)
	NavigationTimeout time.Duration    // per-navigation bound
	Clock             clockwork.Clock  // sample timing; real clock when nil
	Reporter          FailureReporter  // receives failures as they happen
	Tracer            trace.Tracer
	Logger            log.FieldLogger
}

func (o *Options) normalize() {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Reporter == nil {
		o.Reporter = nopReporter{}
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("loadsweep")
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
}

func discardLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
