package tank

import (
	"github.com/sirupsen/logrus"

	"github.com/nnugumanov/yandex-tank/aggregator"
	"github.com/nnugumanov/yandex-tank/sample"
)

// LoggingListener logs every aggregated point and its matched stats sample
// at info level. It mirrors original_source's tank_aggregator.LoggingListener,
// which the original commented out of the default listener list
// ("# [LoggingListener()]") — kept here as an opt-in diagnostic listener
// rather than wired in by default, for the same reason.
type LoggingListener struct {
	Log *logrus.Logger
}

// NewLoggingListener builds a LoggingListener writing to log.
func NewLoggingListener(log *logrus.Logger) *LoggingListener {
	return &LoggingListener{Log: log}
}

// OnAggregatedData implements Listener.
func (l *LoggingListener) OnAggregatedData(data aggregator.Point, stats sample.StatsSample) {
	l.Log.WithFields(logrus.Fields{
		"ts":        data.TS,
		"count":     data.Overall.Count,
		"rps":       stats.RPS,
		"instances": stats.Instances,
	}).Info("got aggregated sample")
}
