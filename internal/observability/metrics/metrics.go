package metrics

import "github.com/prometheus/client_golang/prometheus"

// BridgeMetrics exposes counters/histograms for the webhook bridge.
type BridgeMetrics struct {
	inboundTotal    *prometheus.CounterVec
	dedupDecisions  *prometheus.CounterVec
	ordersPersisted *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	llmLatency      prometheus.Histogram
}

func NewBridgeMetrics(reg prometheus.Registerer) *BridgeMetrics {
	m := &BridgeMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbridge",
			Subsystem: "webhook",
			Name:      "inbound_total",
			Help:      "Total inbound messaging webhook events",
		}, []string{"event_type", "status"}),
		dedupDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbridge",
			Subsystem: "dedup",
			Name:      "decision_total",
			Help:      "Dedup cache decisions per inbound event",
		}, []string{"result"}),
		ordersPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbridge",
			Subsystem: "orders",
			Name:      "persisted_total",
			Help:      "Confirmed orders handed to the persistence sink",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbridge",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound Graph API sends",
		}, []string{"status"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chatbridge",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of LLM completion calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.dedupDecisions, m.ordersPersisted, m.outboundTotal, m.llmLatency)
	return m
}

func (m *BridgeMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *BridgeMetrics) ObserveDedup(result string) {
	if m == nil {
		return
	}
	m.dedupDecisions.WithLabelValues(result).Inc()
}

func (m *BridgeMetrics) ObserveOrderPersisted(status string) {
	if m == nil {
		return
	}
	m.ordersPersisted.WithLabelValues(status).Inc()
}

func (m *BridgeMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *BridgeMetrics) ObserveLLMLatency(seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.Observe(seconds)
}
