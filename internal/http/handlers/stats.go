package handlers

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// StatsHandler renders a JSON snapshot of the booking counters for
// dashboards that don't scrape Prometheus.
type StatsHandler struct {
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewStatsHandler creates a stats handler over the given gatherer.
func NewStatsHandler(gatherer prometheus.Gatherer, logger *logging.Logger) *StatsHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{gatherer: gatherer, logger: logger}
}

// BookingStatsResponse summarizes reservation activity.
type BookingStatsResponse struct {
	Reservations map[string]float64 `json:"reservations"`
	Conflicts    map[string]float64 `json:"conflicts"`
}

// Bookings handles GET /api/v1/stats/bookings.
func (h *StatsHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	families, err := h.gatherer.Gather()
	if err != nil {
		h.logger.Error("metrics gather failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "stats unavailable"})
		return
	}

	resp := BookingStatsResponse{
		Reservations: map[string]float64{},
		Conflicts:    map[string]float64{},
	}
	for _, family := range families {
		switch family.GetName() {
		case "sahatak_booking_reservations_total":
			for _, m := range family.GetMetric() {
				resp.Reservations[labelKey(m)] += m.GetCounter().GetValue()
			}
		case "sahatak_booking_conflicts_total":
			for _, m := range family.GetMetric() {
				resp.Conflicts[labelKey(m)] += m.GetCounter().GetValue()
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func labelKey(m *dto.Metric) string {
	parts := make([]string, 0, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		parts = append(parts, l.GetValue())
	}
	return strings.Join(parts, ":")
}
