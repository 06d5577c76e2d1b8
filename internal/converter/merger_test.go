package converter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/constituent-import/internal/metrics"
	"github.com/ginjaninja78/constituent-import/internal/tags"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

var fixedNow = time.Date(2024, time.June, 1, 9, 30, 0, 0, time.Local)

func newTestMerger(mapping tags.Mapping) *Merger {
	m := NewMerger(tags.NewStaticResolver(mapping), nil, metrics.New())
	m.Now = func() time.Time { return fixedNow }
	return m
}

func sampleTables() Tables {
	return Tables{
		Constituents: []types.ConstituentRecord{
			{
				PatronID: "1", FirstName: "jOHN", LastName: "SMITH",
				DateEntered: "Jan 19, 2020", PrimaryEmail: "John@Gmaill.com",
				Company: "Retired", Salutation: "mr.", JobTitle: "Engineer",
				Tags: "Gala 2023, Gala 2024, Volunteer", MaritalStatus: "Married",
				RowNumber: 1,
			},
			{
				PatronID: "2", FirstName: "ignored", LastName: "ignored",
				DateEntered: "", PrimaryEmail: "invalid", Company: "Acme Corp",
				Salutation: "Rev", Tags: "Volunteer, Volunteer", RowNumber: 2,
			},
			{
				PatronID: "3", FirstName: "ann", DateEntered: "garbage",
				Company: "N/A", RowNumber: 3,
			},
		},
		Emails: []types.EmailRecord{
			{PatronID: "1", Email: "john.smith@example.com"},
			{PatronID: "2", Email: "valid@example.com"},
			{PatronID: "99", Email: "ghost@example.com"},
		},
		Donations: []types.DonationRecord{
			{PatronID: "1", Amount: "$100.00", Date: "2021-05-01", Status: "Paid"},
			{PatronID: "1", Amount: "$50.00", Date: "2022-01-01", Status: "Refunded"},
			{PatronID: "1", Amount: "$25.50", Date: "2021-09-10", Status: "Paid"},
			{PatronID: "2", Amount: "$1,000", Date: "2019-03-04", Status: "Paid"},
			{PatronID: "3", Amount: "$5", Date: "2018-01-01", Status: "Refunded"},
			{PatronID: "99", Amount: "$500", Date: "2023-01-01", Status: "Paid"},
			{PatronID: "98", Amount: "$500", Date: "2023-01-01", Status: "Paid"},
			{PatronID: "98", Amount: "$500", Date: "2023-01-02", Status: "Paid"},
		},
	}
}

func TestMergeBuildsOutputRecords(t *testing.T) {
	m := newTestMerger(tags.Mapping{"Gala 2023": "Event Attendee", "Gala 2024": "Event Attendee"})

	got, err := m.Merge(context.Background(), sampleTables())
	require.NoError(t, err)
	require.Len(t, got.Constituents, 3)

	person := got.Constituents[0]
	assert.Equal(t, types.OutputConstituent{
		ID:                       "1",
		Type:                     types.TypePerson,
		FirstName:                "John",
		LastName:                 "Smith",
		CreatedAt:                "2020-01-19T00:00:00",
		Email1:                   "john@gmail.com",
		Email2:                   "john.smith@example.com",
		Title:                    "Mr.",
		Tags:                     "Event Attendee, Volunteer",
		BackgroundInformation:    "Job Title: Engineer; Marital Status: Married",
		LifetimeDonationAmount:   "$125.50",
		MostRecentDonationDate:   "2021-09-10",
		MostRecentDonationAmount: "$25.50",
	}, person)

	company := got.Constituents[1]
	assert.Equal(t, types.TypeCompany, company.Type)
	assert.Equal(t, "Acme Corp", company.CompanyName)
	assert.Empty(t, company.FirstName)
	assert.Empty(t, company.LastName)
	assert.Equal(t, "2019-03-04T00:00:00", company.CreatedAt)
	assert.Equal(t, "valid@example.com", company.Email1)
	assert.Empty(t, company.Email2)
	assert.Empty(t, company.Title)
	assert.Equal(t, "Volunteer", company.Tags)
	assert.Equal(t, "$1000.00", company.LifetimeDonationAmount)

	onlyRefunded := got.Constituents[2]
	assert.Equal(t, "Ann", onlyRefunded.FirstName)
	assert.Equal(t, "2024-06-01T09:30:00", onlyRefunded.CreatedAt)
	assert.Empty(t, onlyRefunded.LifetimeDonationAmount)
	assert.Empty(t, onlyRefunded.MostRecentDonationDate)
	assert.Empty(t, onlyRefunded.MostRecentDonationAmount)
}

func TestMergePreservesOrderAndCardinality(t *testing.T) {
	in := Tables{Constituents: []types.ConstituentRecord{
		{PatronID: "c"}, {PatronID: "a"}, {PatronID: "b"}, {PatronID: "a"},
	}}

	got, err := newTestMerger(nil).Merge(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, got.Constituents, len(in.Constituents))

	for i, rec := range in.Constituents {
		assert.Equal(t, rec.PatronID, got.Constituents[i].ID)
	}
	assert.Equal(t, []types.PatronID{"a"}, got.Stats.DuplicateIDs)
}

func TestMergeTagReport(t *testing.T) {
	m := newTestMerger(tags.Mapping{"Gala 2023": "Event Attendee", "Gala 2024": "Event Attendee"})

	got, err := m.Merge(context.Background(), sampleTables())
	require.NoError(t, err)

	assert.Equal(t, []types.TagCountEntry{
		{Name: "Event Attendee", Count: 1},
		{Name: "Volunteer", Count: 2},
	}, got.Tags)
}

func TestMergeOrphans(t *testing.T) {
	m := newTestMerger(nil)

	got, err := m.Merge(context.Background(), sampleTables())
	require.NoError(t, err)

	assert.Equal(t, 3, got.Stats.OrphanedDonations)
	assert.Equal(t, []types.PatronID{"98", "99"}, got.Stats.OrphanedDonationPatrons)
	assert.Equal(t, 1, got.Stats.OrphanedEmails)
	assert.Equal(t, []types.PatronID{"99"}, got.Stats.OrphanedEmailPatrons)
	assert.Len(t, got.Constituents, 3)

	for _, rec := range got.Constituents {
		assert.NotEqual(t, "ghost@example.com", rec.Email1)
		assert.NotEqual(t, "ghost@example.com", rec.Email2)
		assert.NotEqual(t, "2023-01-02", rec.MostRecentDonationDate)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Metrics.OrphanedDonations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics.OrphanedEmails))
}

func TestMergeStats(t *testing.T) {
	m := newTestMerger(nil)

	got, err := m.Merge(context.Background(), sampleTables())
	require.NoError(t, err)

	assert.Equal(t, 3, got.Stats.Constituents)
	assert.Equal(t, 2, got.Stats.FallbackCreatedDates)
	assert.Equal(t, 1, got.Stats.DateEnteredFailures)
	assert.False(t, got.Stats.TagLookupDegraded)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Metrics.ConstituentsProcessed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Metrics.FallbackCreatedDates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics.ParseFailures.WithLabelValues(metrics.FieldDateEntered)))
}

func TestMergeFailFast(t *testing.T) {
	m := newTestMerger(nil)
	m.before = func(rec types.ConstituentRecord) {
		if rec.PatronID == "2" {
			panic("boom")
		}
	}

	got, err := m.Merge(context.Background(), sampleTables())
	require.Error(t, err)
	assert.Nil(t, got)

	var te *types.TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "2", te.PatronID)
	assert.Equal(t, 2, te.Row)
	assert.True(t, errors.Is(err, types.ErrTransform))
	assert.Contains(t, err.Error(), "boom")
}

func TestMergeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestMerger(nil).Merge(ctx, sampleTables())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeWithoutResolver(t *testing.T) {
	m := NewMerger(nil, nil, nil)

	got, err := m.Merge(context.Background(), Tables{Constituents: []types.ConstituentRecord{
		{PatronID: "1", DateEntered: "2020-01-01", Tags: "A, B"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "A, B", got.Constituents[0].Tags)
}
