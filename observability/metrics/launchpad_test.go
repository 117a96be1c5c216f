package metrics

import (
	"math/big"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, m interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return out.GetCounter().GetValue()
}

func TestLaunchpadCounters(t *testing.T) {
	m := Launchpad()
	if Launchpad() != m {
		t.Fatalf("registry must be a singleton")
	}
	before := counterValue(t, m.purchases.WithLabelValues("bill"))
	m.ObservePurchase("bill")
	if got := counterValue(t, m.purchases.WithLabelValues("bill")); got != before+1 {
		t.Fatalf("purchases = %v, want %v", got, before+1)
	}

	m.ObserveProceeds("platform", big.NewInt(1_500))
	m.ObserveProceeds("platform", big.NewInt(0))
	if got := counterValue(t, m.proceeds.WithLabelValues("platform")); got != 1_500 {
		t.Fatalf("proceeds = %v, want 1500", got)
	}

	m.ObserveRejection("")
	if got := counterValue(t, m.rejections.WithLabelValues("unknown")); got < 1 {
		t.Fatalf("empty reason must fall back to unknown")
	}

	var nilMetrics *LaunchpadMetrics
	nilMetrics.ObservePurchase("instant")
}
