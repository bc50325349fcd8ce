package tree

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RBTreeStatsName = "xboot/xrbtree"
)

type rbFixupCase string

const (
	fixupUncleRed      rbFixupCase = "uncle-red"
	fixupLeftLeft      rbFixupCase = "left-left"
	fixupLeftRight     rbFixupCase = "left-right"
	fixupRightLeft     rbFixupCase = "right-left"
	fixupRightRight    rbFixupCase = "right-right"
	fixupSiblingRed    rbFixupCase = "sibling-red"
	fixupParentRed     rbFixupCase = "parent-red"
	fixupParentBlack   rbFixupCase = "parent-black"
	fixupNearNephewRed rbFixupCase = "near-nephew-red"
	fixupFarNephewRed  rbFixupCase = "far-nephew-red"
)

// The nil stats are no-ops.
type rbTreeStats struct {
	insertCount      metric.Int64Counter
	deleteCount      metric.Int64Counter
	rotationCount    metric.Int64Counter
	insertFixupCount metric.Int64Counter
	deleteFixupCount metric.Int64Counter
	sentinelHopCount metric.Int64Counter
}

func (stats *rbTreeStats) IncreaseInsertCount() {
	if stats == nil {
		return
	}
	stats.insertCount.Add(context.Background(), 1)
}

func (stats *rbTreeStats) IncreaseDeleteCount() {
	if stats == nil {
		return
	}
	stats.deleteCount.Add(context.Background(), 1)
}

func (stats *rbTreeStats) IncreaseRotationCount(dir RBDirection) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("xrbtree.rotation.direction", dir.String()),
	)
	stats.rotationCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

func (stats *rbTreeStats) IncreaseInsertFixupCount(c rbFixupCase) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("xrbtree.fixup.case", string(c)),
	)
	stats.insertFixupCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

func (stats *rbTreeStats) IncreaseDeleteFixupCount(c rbFixupCase) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("xrbtree.fixup.case", string(c)),
	)
	stats.deleteFixupCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

func (stats *rbTreeStats) IncreaseSentinelHopCount() {
	if stats == nil {
		return
	}
	stats.sentinelHopCount.Add(context.Background(), 1)
}

func newRBTreeStats(name string) *rbTreeStats {
	meterName := RBTreeStatsName
	if len(name) > 0 {
		meterName = fmt.Sprintf("%s/%s", RBTreeStatsName, name)
	}
	meter := otel.Meter(meterName)
	return &rbTreeStats{
		insertCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrbtree.insert.count",
			metric.WithDescription("The number of keys inserted into the rbtree."),
		)),
		deleteCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrbtree.delete.count",
			metric.WithDescription("The number of keys deleted from the rbtree."),
		)),
		rotationCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrbtree.rotation.count",
			metric.WithDescription("The number of rotations by direction."),
		)),
		insertFixupCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrbtree.insert.fixup.count",
			metric.WithDescription("The number of insert rebalance cases hit."),
		)),
		deleteFixupCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrbtree.delete.fixup.count",
			metric.WithDescription("The number of delete rebalance cases hit."),
		)),
		sentinelHopCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrbtree.sentinel.hop.count",
			metric.WithDescription("The number of double black moves over a nil leaf sibling. Expected to be 0."),
		)),
	}
}
