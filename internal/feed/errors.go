package feed

import "errors"

var (
	// ErrAllSourcesFailed means no candidate source of a category produced data.
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrAggregationFailed means the merge step of the combined feed faulted.
	ErrAggregationFailed = errors.New("aggregation failed")
	// ErrUnknownCategory is returned for categories without a configured source.
	ErrUnknownCategory = errors.New("unknown category")
)
