package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the reservation flows.
type BookingMetrics struct {
	reservationsTotal *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	lockWaitSeconds   *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		reservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sahatak",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Total reservation operations by outcome",
		}, []string{"operation", "outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sahatak",
			Subsystem: "booking",
			Name:      "conflicts_total",
			Help:      "Total slot conflicts by reason",
		}, []string{"reason"}),
		lockWaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sahatak",
			Subsystem: "booking",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the slot lock",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reservationsTotal, m.conflictsTotal, m.lockWaitSeconds)
	return m
}

func (m *BookingMetrics) ObserveReservation(operation, outcome string) {
	if m == nil {
		return
	}
	m.reservationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *BookingMetrics) ObserveConflict(reason string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveLockWait(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.lockWaitSeconds.WithLabelValues(operation).Observe(seconds)
}
