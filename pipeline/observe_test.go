package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/seqkit/logger"
	"github.com/kbukum/seqkit/observability"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return rec
}

func withDefaults(t *testing.T, s Settings) {
	t.Helper()
	prev := Defaults()
	SetDefaults(s)
	t.Cleanup(func() { SetDefaults(prev) })
}

func spanAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestLogged_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	assert.Equal(t, []int{1, 2, 3}, collect(t, Logged(Of(1, 2, 3), log, "numbers")))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "iterator opened", lines[0]["message"])
	assert.Equal(t, "iterator closed", lines[1]["message"])
	assert.Equal(t, "numbers", lines[1][logger.FieldOperation])
	assert.EqualValues(t, 3, lines[1][logger.FieldElements])
	assert.Equal(t, observability.StatusOK, lines[1][logger.FieldStatus])
	assert.Equal(t, lines[0][logger.FieldIteratorID], lines[1][logger.FieldIteratorID])
	assert.NotEmpty(t, lines[0][logger.FieldIteratorID])
}

func TestLogged_Failure(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	boom := stderrors.New("boom")

	_, err := Collect(context.Background(), Logged(SelectErr(Of(1), func(int) (int, error) {
		return 0, boom
	}), log, "failing"))
	assert.Same(t, boom, err)

	lines := logLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "boom", lines[1][logger.FieldError])
	assert.Equal(t, observability.StatusError, lines[2][logger.FieldStatus])
}

func TestLogged_NoStartNoLogs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	it := Logged(Of(1), log, "idle").Iter(context.Background())
	require.NoError(t, it.Close())
	assert.Zero(t, buf.Len())

	requireInvalidArgument(t, func() { Logged(Of(1), log, "") })
}

func TestTraced_SpanPerIterator(t *testing.T) {
	rec := installRecorder(t)
	p := Traced(Of(1, 2, 3), "numbers")

	collect(t, p)
	collect(t, p)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "pipeline.numbers", s.Name())
		v, ok := spanAttr(s.Attributes(), observability.AttrElements)
		require.True(t, ok)
		assert.Equal(t, int64(3), v.AsInt64())
		v, ok = spanAttr(s.Attributes(), observability.AttrOperator)
		require.True(t, ok)
		assert.Equal(t, "numbers", v.AsString())
	}
}

func TestTraced_ErrorAndCancel(t *testing.T) {
	rec := installRecorder(t)
	boom := stderrors.New("boom")

	_, err := Collect(context.Background(), Traced(SelectErr(Of(1), func(int) (int, error) {
		return 0, boom
	}), "failing"))
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	it := Traced(Of(1, 2), "canceled").Iter(ctx)
	_, _, err = it.Next(ctx)
	require.NoError(t, err)
	cancel()
	_, _, err = it.Next(ctx)
	require.Error(t, err)
	require.NoError(t, it.Close())

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, observability.StatusCanceled, spans[1].Status().Description)
	assert.Empty(t, spans[1].Events())
}

func TestTerminal_SpansWhenEnabled(t *testing.T) {
	rec := installRecorder(t)
	withDefaults(t, Settings{TraceTerminals: true})

	_, err := Min(context.Background(), Of(3, 1, 2))
	require.NoError(t, err)
	_, err = Max(context.Background(), Empty[int]())
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "pipeline.Min", spans[0].Name())
	assert.Equal(t, "pipeline.Max", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestTerminal_NoSpansByDefault(t *testing.T) {
	rec := installRecorder(t)
	_, err := Min(context.Background(), Of(3, 1, 2))
	require.NoError(t, err)
	assert.Empty(t, rec.Ended())
}

func TestMeasured(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	metrics, err := observability.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, collect(t, Measured(Of(1, 2, 3), metrics, "numbers")))

	boom := stderrors.New("boom")
	_, err = Collect(ctx, Measured(SelectErr(Of(1), func(int) (int, error) { return 0, boom }), metrics, "failing"))
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(3), sumInt64(t, rm, observability.MetricElements))
	assert.Equal(t, int64(0), sumInt64(t, rm, observability.MetricIteratorsActive))
	assert.Equal(t, int64(1), sumInt64(t, rm, observability.MetricErrors))
}

func TestMeasured_DefaultsAndPassThrough(t *testing.T) {
	assert.Equal(t, []int{1, 2}, collect(t, Measured(Of(1, 2), nil, "plain")))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observability.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)
	withDefaults(t, Settings{Metrics: metrics})

	collect(t, Measured(Of(1, 2), nil, "defaulted"))
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.Equal(t, int64(2), sumInt64(t, rm, observability.MetricElements))
}

func sumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s has data type %T", name, m.Data)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestSetDefaults(t *testing.T) {
	withDefaults(t, Settings{})
	assert.Equal(t, DefaultBufferSize, Defaults().BufferSize)
	assert.Equal(t, DefaultGroupCapacity, Defaults().GroupCapacity)

	withDefaults(t, Settings{BufferSize: 3, GroupCapacity: 1})
	assert.Equal(t, 3, Defaults().BufferSize)

	requireInvalidArgument(t, func() { SetDefaults(Settings{BufferSize: -1}) })
}
