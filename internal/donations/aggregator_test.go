package donations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/constituent-import/internal/types"
)

func donation(id, amount, date, status string) types.DonationRecord {
	return types.DonationRecord{PatronID: id, Amount: amount, Date: date, Status: status}
}

func TestGroupByPatron(t *testing.T) {
	grouped := GroupByPatron([]types.DonationRecord{
		donation(" 1 ", "$10", "2020-01-01", "Paid"),
		donation("1", "$20", "2020-02-01", "Paid"),
		donation("", "$99", "2020-03-01", "Paid"),
		donation("2", "$5", "2021-01-01", ""),
	})

	require.Len(t, grouped, 2)
	assert.Len(t, grouped["1"], 2)
	assert.Len(t, grouped["2"], 1)
}

func TestExcludeRefunded(t *testing.T) {
	kept := ExcludeRefunded([]types.DonationRecord{
		donation("1", "$1", "", "Paid"),
		donation("1", "$2", "", " Refunded "),
		donation("1", "$3", "", ""),
		donation("1", "$4", "", "refunded"),
	})

	require.Len(t, kept, 3)
	assert.Equal(t, "$1", kept[0].Amount)
	assert.Equal(t, "$3", kept[1].Amount)
	assert.Equal(t, "$4", kept[2].Amount)
}

func TestLifetimeTotal(t *testing.T) {
	t.Run("refunded excluded", func(t *testing.T) {
		got := LifetimeTotal([]types.DonationRecord{
			donation("1", "$100.00", "2020-01-01", "Paid"),
			donation("1", "$50.00", "2020-01-02", "Refunded"),
		})
		assert.Equal(t, "$100.00", got)
	})

	t.Run("thousands separators", func(t *testing.T) {
		got := LifetimeTotal([]types.DonationRecord{
			donation("1", "$1,000.25", "", "Paid"),
			donation("1", "$0.75", "", "Paid"),
		})
		assert.Equal(t, "$1001.00", got)
	})

	t.Run("only refunded", func(t *testing.T) {
		got := LifetimeTotal([]types.DonationRecord{donation("1", "$5", "", "Refunded")})
		assert.Equal(t, "", got)
	})

	t.Run("none", func(t *testing.T) {
		assert.Equal(t, "", LifetimeTotal(nil))
	})
}

func TestMostRecent(t *testing.T) {
	date, amount := MostRecent([]types.DonationRecord{
		donation("1", "$10", "2020-01-05", "Paid"),
		donation("1", "$30", "2022-03-01", "Refunded"),
		donation("1", "$25", "2021-07-19", "Paid"),
		donation("1", "$15", "2019-12-31", ""),
	})
	assert.Equal(t, "2021-07-19", date)
	assert.Equal(t, "$25.00", amount)

	date, amount = MostRecent([]types.DonationRecord{donation("1", "$30", "2022-03-01", "Refunded")})
	assert.Empty(t, date)
	assert.Empty(t, amount)
}

func TestFallbackCreatedDate(t *testing.T) {
	fixed := time.Date(2024, time.June, 1, 9, 30, 0, 0, time.Local)
	now := func() time.Time { return fixed }

	grouped := GroupByPatron([]types.DonationRecord{
		donation("1", "$10", "2021-03-15", "Paid"),
		donation("1", "$10", "2020-11-02", "Paid"),
		donation("1", "$10", "2019-01-01", "Refunded"),
		donation("2", "$10", "2019-01-01", "Refunded"),
		donation("3", "$10", "not a date", "Paid"),
	})

	t.Run("earliest non-refunded at start of day", func(t *testing.T) {
		got := FallbackCreatedDate("1", grouped, now)
		assert.Equal(t, time.Date(2020, time.November, 2, 0, 0, 0, 0, time.Local), got)
	})

	t.Run("no day subtracted", func(t *testing.T) {
		got := FallbackCreatedDate("1", grouped, now)
		assert.Equal(t, 2, got.Day())
	})

	t.Run("only refunded uses now", func(t *testing.T) {
		assert.Equal(t, fixed, FallbackCreatedDate("2", grouped, now))
	})

	t.Run("unparseable uses now", func(t *testing.T) {
		assert.Equal(t, fixed, FallbackCreatedDate("3", grouped, now))
	})

	t.Run("unknown patron uses now", func(t *testing.T) {
		assert.Equal(t, fixed, FallbackCreatedDate("404", grouped, now))
	})
}
