package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_promMonitor(t *testing.T) {
	m := newMonitor(prometheus.NewRegistry())
	a := plan.NetAddr{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 10001}
	m.Egress(10, a)
	m.Egress(5, a)
	m.Ingress(7, a)
	m.Discarded(7, a)
	m.CollectiveDone("gather", "root", "success", 3*time.Millisecond)
	m.CollectiveDone("gather", "root", "timeout", 10*time.Millisecond)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.egressBytes.WithLabelValues(a.String())))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ingressBytes.WithLabelValues(a.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discardedMessages.WithLabelValues(a.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collectiveTotal.WithLabelValues("gather", "root", "timeout")))

	w := httptest.NewRecorder()
	m.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `kungfu_egress_total_bytes{peer="127.0.0.1:10001"} 15`), body)
	assert.True(t, strings.Contains(body, "kungfu_collective_duration_seconds_count"), body)
}

func Test_noopMonitor(t *testing.T) {
	var m noopMonitor
	m.Egress(1, plan.NetAddr{})
	w := httptest.NewRecorder()
	m.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, w.Code)
}
