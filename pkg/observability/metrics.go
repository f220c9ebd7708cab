package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricParseDuration = "treedump.parse.duration.seconds"
	metricNodesTotal    = "treedump.nodes.total"
	metricFilesTotal    = "treedump.files.total"
	metricErrorsTotal   = "treedump.errors.total"
	metricBytesTotal    = "treedump.source.bytes.total"

	attrGrammar = "grammar"
	attrStage   = "stage"
	attrStatus  = "status"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers 1ms to 60s; most files parse in well under
// a second.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// metricBuilder accumulates OTel instrument creation errors,
// enabling batch construction with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// PipelineMetrics holds the OTel instruments recorded per processed file.
type PipelineMetrics struct {
	parseDuration metric.Float64Histogram
	nodesTotal    metric.Int64Counter
	filesTotal    metric.Int64Counter
	errorsTotal   metric.Int64Counter
	bytesTotal    metric.Int64Counter
}

// FileStats describes one processed file.
type FileStats struct {
	Grammar       string
	ParseDuration time.Duration
	Nodes         int
	SourceBytes   int
}

// NewPipelineMetrics creates the pipeline instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &PipelineMetrics{
		parseDuration: b.histogram(metricParseDuration, "Time spent in the grammar engine", "s",
			durationBucketBoundaries...),
		nodesTotal:  b.counter(metricNodesTotal, "Syntax tree nodes serialized", "{node}"),
		filesTotal:  b.counter(metricFilesTotal, "Files processed", "{file}"),
		errorsTotal: b.counter(metricErrorsTotal, "Failed files by pipeline stage", "{error}"),
		bytesTotal:  b.counter(metricBytesTotal, "Source bytes parsed", "By"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// RecordFile records a successfully processed file.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordFile(ctx context.Context, stats FileStats) {
	if pm == nil {
		return
	}

	grammarAttr := attribute.String(attrGrammar, stats.Grammar)

	pm.parseDuration.Record(ctx, stats.ParseDuration.Seconds(), metric.WithAttributes(grammarAttr))
	pm.nodesTotal.Add(ctx, int64(stats.Nodes), metric.WithAttributes(grammarAttr))
	pm.bytesTotal.Add(ctx, int64(stats.SourceBytes), metric.WithAttributes(grammarAttr))
	pm.filesTotal.Add(ctx, 1, metric.WithAttributes(grammarAttr, attribute.String(attrStatus, statusOK)))
}

// RecordError records a file that failed at the given stage.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordError(ctx context.Context, grammar, stage string) {
	if pm == nil {
		return
	}

	grammarAttr := attribute.String(attrGrammar, grammar)

	pm.filesTotal.Add(ctx, 1, metric.WithAttributes(grammarAttr, attribute.String(attrStatus, statusError)))
	pm.errorsTotal.Add(ctx, 1, metric.WithAttributes(grammarAttr, attribute.String(attrStage, stage)))
}
