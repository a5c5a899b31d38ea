package metric

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Alturino/storefront/internal/constants"
)

// Int64Counter registers a counter on the global meter. Counters created
// before InitOtelSdk are delegated to the provider installed later.
func Int64Counter(name, description string) metric.Int64Counter {
	counter, err := otel.Meter(constants.AppStorefront).
		Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
		return noop.Int64Counter{}
	}
	return counter
}
