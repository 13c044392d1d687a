package tank

import (
	"github.com/nnugumanov/yandex-tank/reader"
	"github.com/nnugumanov/yandex-tank/sample"
)

// Generator is the external collaborator TankAggregator pulls samples from
// (spec.md §6 Reader contract). GetReaders may return an empty slice to
// disable aggregation; GetStatsReader may return nil for the same reason.
// Both and EndTest must be safe to call at least once.
type Generator interface {
	GetReaders() []reader.Reader[sample.Sample]
	GetStatsReader() reader.Reader[sample.StatsSample]
	EndTest(retcode int) int
}
