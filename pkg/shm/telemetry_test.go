package shm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type TelemetryTestSuite struct {
	suite.Suite
	reader *sdkmetric.ManualReader
	spans  *tracetest.SpanRecorder
	cfg    Config
}

func (s *TelemetryTestSuite) SetupTest() {
	s.reader = sdkmetric.NewManualReader()
	s.spans = tracetest.NewSpanRecorder()
	s.cfg = Config{
		Meter:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(s.reader)).Meter("test"),
		Tracer: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans)).Tracer("test"),
	}
}

func (s *TelemetryTestSuite) sums() map[string]int64 {
	var rm metricdata.ResourceMetrics
	s.Require().NoError(s.reader.Collect(context.Background(), &rm))
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				role, _ := dp.Attributes.Value("shm.role")
				out[m.Name+"/"+role.AsString()] += dp.Value
			}
		}
	}
	return out
}

func (s *TelemetryTestSuite) TestTransferRecorded() {
	r, err := NewHeapRegion(64)
	s.Require().NoError(err)
	Initialize(r, 1000)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := NewProducer(r, s.cfg).Run(context.Background(), &patternReader{})
		s.NoError(err)
	}()
	res, err := NewConsumer(r, s.cfg).Run(context.Background())
	wg.Wait()
	s.Require().NoError(err)
	s.Require().True(res.Complete())

	sums := s.sums()
	s.Equal(int64(1000), sums["shm.transfer.bytes/producer"])
	s.Equal(int64(1000), sums["shm.transfer.bytes/consumer"])
	s.Equal(int64(1), sums["shm.transfer.count/producer"])
	s.Equal(int64(1), sums["shm.transfer.count/consumer"])

	ended := s.spans.Ended()
	s.Require().Len(ended, 2)
	names := []string{ended[0].Name(), ended[1].Name()}
	s.ElementsMatch([]string{"shm.producer", "shm.consumer"}, names)
	for _, span := range ended {
		s.Contains(span.Attributes(), attribute.String("shm.state", "done"))
		s.Equal(codes.Unset, span.Status().Code)
	}
}

func (s *TelemetryTestSuite) TestFailureMarksSpan() {
	r, err := NewHeapRegion(64)
	s.Require().NoError(err)
	Initialize(r, 1000)

	s.cfg.MaxChunk = 10
	_, err = NewProducer(r, s.cfg).Run(context.Background(), &failingReader{n: 10, err: errors.New("boom")})
	s.Require().ErrorIs(err, ErrAborted)

	ended := s.spans.Ended()
	s.Require().Len(ended, 1)
	s.Equal(codes.Error, ended[0].Status().Code)
	s.Contains(ended[0].Attributes(), attribute.String("shm.state", "aborted"))
	s.Equal(int64(10), s.sums()["shm.transfer.bytes/producer"])
}

func (s *TelemetryTestSuite) TestNoopByDefault() {
	tel := newTelemetry(Config{})
	ctx, span := tel.start(context.Background(), roleConsumer)
	s.False(span.SpanContext().IsValid())
	tel.end(ctx, span, roleConsumer, "done", 1, 0, nil)
}

func TestTelemetryTestSuite(t *testing.T) {
	suite.Run(t, new(TelemetryTestSuite))
}
