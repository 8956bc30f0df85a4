package tree

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	RBTreeStatsName = "xrbtree/rbtree"
)

// rbTreeStats methods are nil receiver safe, a tree without
// WithRBTreeStats records nothing.
type rbTreeStats struct {
	insertCount         metric.Int64Counter
	deleteCount         metric.Int64Counter
	deleteNotFoundCount metric.Int64Counter
	rotateCount         metric.Int64Counter
	nodeCount           metric.Int64UpDownCounter
}

func (stats *rbTreeStats) IncreaseInsertCount() {
	if stats == nil {
		return
	}
	stats.insertCount.Add(context.Background(), 1)
	stats.nodeCount.Add(context.Background(), 1)
}

func (stats *rbTreeStats) IncreaseDeleteCount() {
	if stats == nil {
		return
	}
	stats.deleteCount.Add(context.Background(), 1)
	stats.nodeCount.Add(context.Background(), -1)
}

func (stats *rbTreeStats) IncreaseDeleteNotFoundCount() {
	if stats == nil {
		return
	}
	stats.deleteNotFoundCount.Add(context.Background(), 1)
}

func (stats *rbTreeStats) IncreaseRotateCount() {
	if stats == nil {
		return
	}
	stats.rotateCount.Add(context.Background(), 1)
}

func (stats *rbTreeStats) RecordReleased(nodes int64) {
	if stats == nil {
		return
	}
	stats.nodeCount.Add(context.Background(), -nodes)
}

func newRBTreeStats(name string) *rbTreeStats {
	meterName := fmt.Sprintf("%s/%s", RBTreeStatsName, name)
	return &rbTreeStats{
		insertCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.insert.count",
				metric.WithDescription("The number of nodes inserted into the rbtree."),
			),
		),
		deleteCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.delete.count",
				metric.WithDescription("The number of nodes removed from the rbtree."),
			),
		),
		deleteNotFoundCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.delete.notfound.count",
				metric.WithDescription("The number of deletions of absent keys."),
			),
		),
		rotateCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.rotate.count",
				metric.WithDescription("The number of rotations done by the rbtree fixups."),
			),
		),
		nodeCount: lo.Must[metric.Int64UpDownCounter](otel.Meter(meterName).
			Int64UpDownCounter(
				"rbtree.node.count",
				metric.WithDescription("The number of live nodes in the rbtree."),
			),
		),
	}
}
