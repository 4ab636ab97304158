package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricIndexKeys       = "simlsh.index.keys"
	metricIndexBucketFill = "simlsh.index.bucket_fill"
)

// bucketFillBoundaries covers bucket occupancy from a handful of colliding
// keys up to the tens-of-thousands range a high-cardinality band can reach.
var bucketFillBoundaries = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 1024, 8192}

// IndexMetrics holds OTel instruments reporting on a banded LSH index's
// internal shape: how many distinct keys it has ever seen, and how full its
// per-band buckets are getting.
type IndexMetrics struct {
	keys       metric.Int64Counter
	bucketFill metric.Int64Histogram
}

// NewIndexMetrics creates index metric instruments from the given meter.
func NewIndexMetrics(mt metric.Meter) (*IndexMetrics, error) {
	keys, err := mt.Int64Counter(metricIndexKeys,
		metric.WithDescription("Distinct keys ever inserted into the index"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricIndexKeys, err)
	}

	bucketFill, err := mt.Int64Histogram(metricIndexBucketFill,
		metric.WithDescription("Per-band bucket occupancy sampled on Insert"),
		metric.WithUnit("{key}"),
		metric.WithExplicitBucketBoundaries(bucketFillBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricIndexBucketFill, err)
	}

	return &IndexMetrics{keys: keys, bucketFill: bucketFill}, nil
}

// RecordInsert records one Insert call: a newly-seen key and the resulting
// occupancy of every band bucket the key landed in.
func (im *IndexMetrics) RecordInsert(ctx context.Context, isNewKey bool, bucketSizes []int) {
	if im == nil {
		return
	}

	if isNewKey {
		im.keys.Add(ctx, 1)
	}

	for _, size := range bucketSizes {
		im.bucketFill.Record(ctx, int64(size))
	}
}
