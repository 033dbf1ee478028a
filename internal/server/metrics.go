package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"lifo-parking/internal/garage"
)

// FacilityCollector exposes a point-in-time view of the facility on scrape.
type FacilityCollector struct {
	service *garage.Service

	capacity *prometheus.Desc
	occupied *prometheus.Desc
	waiting  *prometheus.Desc
	served   *prometheus.Desc
	revenue  *prometheus.Desc
}

func NewFacilityCollector(service *garage.Service) *FacilityCollector {
	return &FacilityCollector{
		service:  service,
		capacity: prometheus.NewDesc("parking_facility_capacity", "Number of parking spaces.", nil, nil),
		occupied: prometheus.NewDesc("parking_facility_occupied", "Cars currently parked.", nil, nil),
		waiting:  prometheus.NewDesc("parking_facility_waiting", "Cars in the waiting area.", nil, nil),
		served:   prometheus.NewDesc("parking_facility_served_total", "Cars that have left and paid.", nil, nil),
		revenue:  prometheus.NewDesc("parking_facility_revenue_total", "Fees collected.", nil, nil),
	}
}

func (c *FacilityCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.occupied
	ch <- c.waiting
	ch <- c.served
	ch <- c.revenue
}

func (c *FacilityCollector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()
	status := c.service.Status(ctx)
	stats := c.service.Stats(ctx)

	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(status.Capacity))
	ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(status.Occupied))
	ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.GaugeValue, float64(status.WaitingCount))
	ch <- prometheus.MustNewConstMetric(c.served, prometheus.CounterValue, float64(stats.TotalServed))
	ch <- prometheus.MustNewConstMetric(c.revenue, prometheus.CounterValue, stats.TotalRevenue)
}

func NewRegistry(service *garage.Service) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewFacilityCollector(service),
	)
	return reg
}
