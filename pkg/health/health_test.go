package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type HealthTestSuite struct {
	suite.Suite
	reg    *prometheus.Registry
	server *Server
}

func (s *HealthTestSuite) SetupTest() {
	s.reg = prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_transfers_total", Help: "A test counter."})
	s.reg.MustRegister(c)
	c.Add(3)
	s.server = NewServer(s.reg, 50*time.Millisecond, zaptest.NewLogger(s.T()))
}

func (s *HealthTestSuite) get(path string) (int, string) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.server.Handler().ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, string(body)
}

func (s *HealthTestSuite) TestReadiness() {
	code, _ := s.get("/ready")
	s.Equal(http.StatusOK, code)

	s.server.ReportHealth("consumer", errors.New("region not attached"))
	code, _ = s.get("/ready")
	s.Equal(http.StatusServiceUnavailable, code)

	s.server.ReportHealth("consumer", nil)
	code, _ = s.get("/ready")
	s.Equal(http.StatusOK, code)
}

func (s *HealthTestSuite) TestLiveness() {
	s.server.Heartbeat("producer")
	code, _ := s.get("/live")
	s.Equal(http.StatusOK, code)

	time.Sleep(100 * time.Millisecond)
	code, _ = s.get("/live")
	s.Equal(http.StatusServiceUnavailable, code)

	s.server.Heartbeat("producer")
	code, _ = s.get("/live")
	s.Equal(http.StatusOK, code)
}

func (s *HealthTestSuite) TestMetrics() {
	code, body := s.get("/metrics")
	s.Equal(http.StatusOK, code)
	s.Contains(body, "test_transfers_total 3")
}

func (s *HealthTestSuite) TestStartShutdown() {
	addr, err := s.server.Start("127.0.0.1:0")
	s.Require().NoError(err)

	resp, err := http.Get("http://" + addr + "/ready")
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(s.server.Shutdown(ctx))

	_, err = http.Get("http://" + addr + "/ready")
	s.Error(err)
	s.True(strings.Contains(addr, "127.0.0.1:"))
}

func TestHealthTestSuite(t *testing.T) {
	suite.Run(t, new(HealthTestSuite))
}
