package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    AgentCallLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "tradequorum",
            Subsystem: "agents",
            Name:      "call_latency_seconds",
            Help:      "Latency of model-service agent calls",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"path"},
    )

    AgentCallErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "tradequorum",
            Subsystem: "agents",
            Name:      "errors_total",
            Help:      "Errors by model-service path",
        },
        []string{"path"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(AgentCallLatency, AgentCallErrors)
    })
}
