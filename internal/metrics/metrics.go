// Package metrics records run diagnostics as prometheus metrics.
//
// Each run owns its registry so the counters describe exactly one import.
// The registry can be written to a node-exporter textfile once the run ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Field labels for ParseFailures.
const (
	FieldDateEntered  = "date_entered"
	FieldDonationDate = "donation_date"
)

// Metrics holds the counters for one import run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ConstituentsProcessed prometheus.Counter
	OrphanedDonations     prometheus.Counter
	OrphanedEmails        prometheus.Counter
	DuplicateIDs          prometheus.Counter
	FallbackCreatedDates  prometheus.Counter
	TagLookupFailures     prometheus.Counter
	ParseFailures         *prometheus.CounterVec
	TagsReported          prometheus.Gauge
	RunDuration           prometheus.Gauge
}

// New creates a Metrics instance on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConstituentsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "constituent_import_constituents_processed_total",
			Help: "Constituent records transformed into output records",
		}),
		OrphanedDonations: factory.NewCounter(prometheus.CounterOpts{
			Name: "constituent_import_orphaned_donations_total",
			Help: "Donation records referencing an unknown patron id",
		}),
		OrphanedEmails: factory.NewCounter(prometheus.CounterOpts{
			Name: "constituent_import_orphaned_emails_total",
			Help: "Email records referencing an unknown patron id",
		}),
		DuplicateIDs: factory.NewCounter(prometheus.CounterOpts{
			Name: "constituent_import_duplicate_patron_ids_total",
			Help: "Constituent rows whose patron id was already seen",
		}),
		FallbackCreatedDates: factory.NewCounter(prometheus.CounterOpts{
			Name: "constituent_import_fallback_created_dates_total",
			Help: "Constituents whose created-at date came from the donation fallback",
		}),
		TagLookupFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "constituent_import_tag_lookup_failures_total",
			Help: "Tag mapping lookups that degraded to the identity mapping",
		}),
		ParseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "constituent_import_parse_failures_total",
			Help: "Field values that could not be parsed",
		}, []string{"field"}),
		TagsReported: factory.NewGauge(prometheus.GaugeOpts{
			Name: "constituent_import_tags_reported",
			Help: "Distinct canonical tags in the tag-frequency report",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "constituent_import_run_duration_seconds",
			Help: "Wall-clock duration of the import run",
		}),
	}
}

// Registry returns the run registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AddProcessed records n transformed constituents.
func (m *Metrics) AddProcessed(n int) {
	if m == nil {
		return
	}
	m.ConstituentsProcessed.Add(float64(n))
}

// AddOrphans records orphaned donation and email counts.
func (m *Metrics) AddOrphans(donations, emails int) {
	if m == nil {
		return
	}
	m.OrphanedDonations.Add(float64(donations))
	m.OrphanedEmails.Add(float64(emails))
}

// AddDuplicateIDs records n repeated patron ids.
func (m *Metrics) AddDuplicateIDs(n int) {
	if m == nil {
		return
	}
	m.DuplicateIDs.Add(float64(n))
}

// AddFallbackCreatedDates records n fallback created-at dates.
func (m *Metrics) AddFallbackCreatedDates(n int) {
	if m == nil {
		return
	}
	m.FallbackCreatedDates.Add(float64(n))
}

// IncrementTagLookupFailure records a degraded tag lookup.
func (m *Metrics) IncrementTagLookupFailure() {
	if m == nil {
		return
	}
	m.TagLookupFailures.Inc()
}

// AddParseFailures records n unparseable values for field.
func (m *Metrics) AddParseFailures(field string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ParseFailures.WithLabelValues(field).Add(float64(n))
}

// SetTagsReported records the size of the tag report.
func (m *Metrics) SetTagsReported(n int) {
	if m == nil {
		return
	}
	m.TagsReported.Set(float64(n))
}

// ObserveRun records the run duration.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveRun(start time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Set(time.Since(start).Seconds())
}

// WriteTextfile writes the registry in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
