package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntheticStats(t *testing.T) {
	s := SyntheticStats(100)
	assert.Equal(t, int64(100), s.TS)
	assert.Equal(t, 0, s.RPS)
	assert.Equal(t, 0, s.Instances)
}

func TestBucketAccumulatesSamples(t *testing.T) {
	b := Bucket{TS: 5}
	b.Samples = append(b.Samples, Sample{TS: 5, Latency: 10}, Sample{TS: 5, Latency: 20})
	assert.Len(t, b.Samples, 2)
}
