package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	base := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestBucketBoundaries(t *testing.T) {
	cases := []struct {
		days int
		want Bucket
	}{
		{-10, BucketCurrent},
		{0, BucketCurrent},
		{1, Bucket1To30},
		{30, Bucket1To30},
		{31, Bucket31To60},
		{60, Bucket31To60},
		{61, Bucket61To90},
		{90, Bucket61To90},
		{91, BucketOver90},
		{365, BucketOver90},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, BucketFor(tc.days), "days=%d", tc.days)
	}
}

func TestInvoice45DaysPastDue(t *testing.T) {
	asOf := day(0)
	report := Build(asOf, []Item{
		{PartyID: 1, PartyName: "Acme", InvoiceID: 11, DueDate: asOf.AddDate(0, 0, -45), Outstanding: 250},
	})
	require.Equal(t, 250.0, report.Totals[Bucket31To60])
	require.Equal(t, 250.0, report.Total)
}

func TestBucketsPartitionOutstanding(t *testing.T) {
	asOf := day(0)
	items := []Item{
		{PartyID: 1, PartyName: "Acme", InvoiceID: 1, DueDate: asOf.AddDate(0, 0, 5), Outstanding: 100},
		{PartyID: 1, PartyName: "Acme", InvoiceID: 2, DueDate: asOf.AddDate(0, 0, -10), Outstanding: 200},
		{PartyID: 2, PartyName: "Globex", InvoiceID: 3, DueDate: asOf.AddDate(0, 0, -45), Outstanding: 300},
		{PartyID: 2, PartyName: "Globex", InvoiceID: 4, DueDate: asOf.AddDate(0, 0, -75), Outstanding: 400},
		{PartyID: 3, PartyName: "Initech", InvoiceID: 5, DueDate: asOf.AddDate(0, 0, -120), Outstanding: 500},
	}
	report := Build(asOf, items)

	var sum float64
	for _, bucket := range Buckets {
		sum += report.Totals[bucket]
	}
	require.Equal(t, report.Total, sum, "buckets must partition the outstanding total")
	require.Equal(t, 1500.0, report.Total)
	require.Equal(t, 100.0, report.Totals[BucketCurrent])
	require.Equal(t, 200.0, report.Totals[Bucket1To30])
	require.Equal(t, 300.0, report.Totals[Bucket31To60])
	require.Equal(t, 400.0, report.Totals[Bucket61To90])
	require.Equal(t, 500.0, report.Totals[BucketOver90])
}

func TestSettledInvoicesExcluded(t *testing.T) {
	asOf := day(0)
	report := Build(asOf, []Item{
		{PartyID: 1, PartyName: "Acme", InvoiceID: 1, DueDate: asOf.AddDate(0, 0, -45), Outstanding: 0},
	})
	require.Empty(t, report.Parties)
	require.Equal(t, 0.0, report.Total)
}

func TestPartiesSortedByName(t *testing.T) {
	asOf := day(0)
	report := Build(asOf, []Item{
		{PartyID: 2, PartyName: "Globex", InvoiceID: 1, DueDate: asOf, Outstanding: 10},
		{PartyID: 1, PartyName: "Acme", InvoiceID: 2, DueDate: asOf, Outstanding: 20},
	})
	require.Len(t, report.Parties, 2)
	require.Equal(t, "Acme", report.Parties[0].PartyName)
	require.Equal(t, "Globex", report.Parties[1].PartyName)
}
