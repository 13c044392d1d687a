package tank

import (
	"github.com/nnugumanov/yandex-tank/aggregator"
	"github.com/nnugumanov/yandex-tank/sample"
)

// Listener is the capability TankAggregator dispatches matched points to
// (spec.md §6, §9 Design Note "Listener dispatch"): on_aggregated_data kept
// as a single method, registered in a flat ordered list.
type Listener interface {
	OnAggregatedData(data aggregator.Point, stats sample.StatsSample)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(data aggregator.Point, stats sample.StatsSample)

// OnAggregatedData implements Listener.
func (f ListenerFunc) OnAggregatedData(data aggregator.Point, stats sample.StatsSample) {
	f(data, stats)
}
