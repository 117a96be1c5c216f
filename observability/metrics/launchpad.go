package metrics

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LaunchpadMetrics tracks campaign activity observed by the node.
type LaunchpadMetrics struct {
	purchases  *prometheus.CounterVec
	proceeds   *prometheus.CounterVec
	closeSteps *prometheus.CounterVec
	projects   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	operations *prometheus.HistogramVec
}

var (
	launchpadOnce     sync.Once
	launchpadRegistry *LaunchpadMetrics
)

// Launchpad returns the lazily registered launchpad collectors.
func Launchpad() *LaunchpadMetrics {
	launchpadOnce.Do(func() {
		launchpadRegistry = &LaunchpadMetrics{
			purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "launchpad_purchases_total",
				Help: "Count of accepted purchases by settlement mode.",
			}, []string{"mode"}),
			proceeds: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "launchpad_proceeds_wei_total",
				Help: "Native currency paid out by recipient class.",
			}, []string{"recipient"}),
			closeSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "launchpad_close_steps_total",
				Help: "Bills processed by close calls, by settlement path.",
			}, []string{"path"}),
			projects: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "launchpad_projects_total",
				Help: "Campaign lifecycle transitions by resulting status.",
			}, []string{"status"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "launchpad_rejections_total",
				Help: "Operations rejected by the engines, by reason.",
			}, []string{"reason"}),
			operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "launchpad_operation_seconds",
				Help:    "Latency of node operations.",
				Buckets: prometheus.DefBuckets,
			}, []string{"op"}),
		}
		prometheus.MustRegister(
			launchpadRegistry.purchases,
			launchpadRegistry.proceeds,
			launchpadRegistry.closeSteps,
			launchpadRegistry.projects,
			launchpadRegistry.rejections,
			launchpadRegistry.operations,
		)
	})
	return launchpadRegistry
}

func normalize(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unknown"
	}
	return label
}

func (m *LaunchpadMetrics) ObservePurchase(mode string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(normalize(mode)).Inc()
}

// ObserveProceeds adds amount wei to the recipient counter. Precision past
// float64 is dropped.
func (m *LaunchpadMetrics) ObserveProceeds(recipient string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.proceeds.WithLabelValues(normalize(recipient)).Add(value)
}

func (m *LaunchpadMetrics) ObserveCloseStep(path string) {
	if m == nil {
		return
	}
	m.closeSteps.WithLabelValues(normalize(path)).Inc()
}

func (m *LaunchpadMetrics) ObserveProject(status string) {
	if m == nil {
		return
	}
	m.projects.WithLabelValues(normalize(status)).Inc()
}

func (m *LaunchpadMetrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(normalize(reason)).Inc()
}

func (m *LaunchpadMetrics) ObserveOperation(op string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(normalize(op)).Observe(elapsed.Seconds())
}
