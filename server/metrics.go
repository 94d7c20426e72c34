package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics 进程级运行指标，经 /metrics 以 Prometheus 格式暴露
type serverMetrics struct {
	activeSessions prometheus.Gauge
	activeSpaces   prometheus.Gauge
	joinsTotal     prometheus.Counter
	joinsRejected  *prometheus.CounterVec
	movesAccepted  prometheus.Counter
	movesRejected  prometheus.Counter
	framesDropped  prometheus.Counter
	peersReaped    prometheus.Counter
}

var metrics = newServerMetrics(prometheus.DefaultRegisterer)

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	ns := "metaspace"
	return &serverMetrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "active_sessions",
			Help: "Currently registered sessions across all spaces.",
		}),
		activeSpaces: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "active_spaces",
			Help: "Spaces currently held in the registry.",
		}),
		joinsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "joins_total",
			Help: "Successful joins, takeovers included.",
		}),
		joinsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "joins_rejected_total",
			Help: "Rejected joins by reason.",
		}, []string{"reason"}),
		movesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "moves_accepted_total",
			Help: "Movement requests committed by the authority.",
		}),
		movesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "moves_rejected_total",
			Help: "Movement requests rejected (collision, bounds or identity mismatch).",
		}),
		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "frames_dropped_total",
			Help: "Outbound frames dropped because a peer send queue was full.",
		}),
		peersReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "peers_reaped_total",
			Help: "Sessions removed after a delivery failure during broadcast.",
		}),
	}
}

// 加入被拒时 reason 标签的取值
const (
	rejectReasonAuth      = "auth"
	rejectReasonNotFound  = "not_found"
	rejectReasonDirectory = "directory"
	rejectReasonProtocol  = "protocol"
)
