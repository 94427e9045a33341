// Package aging buckets outstanding invoice balances by days past due.
package aging

import (
	"sort"
	"time"
)

// Bucket names an age band.
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket1To30   Bucket = "1_30"
	Bucket31To60  Bucket = "31_60"
	Bucket61To90  Bucket = "61_90"
	BucketOver90  Bucket = "over_90"
)

// Buckets lists the bands in display order.
var Buckets = []Bucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// BucketFor maps days past due to its band. Zero or negative days means the
// invoice is not yet due.
func BucketFor(daysPastDue int) Bucket {
	switch {
	case daysPastDue <= 0:
		return BucketCurrent
	case daysPastDue <= 30:
		return Bucket1To30
	case daysPastDue <= 60:
		return Bucket31To60
	case daysPastDue <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// DaysPastDue counts whole days between the due date and the as-of date.
func DaysPastDue(asOf, dueDate time.Time) int {
	return int(asOf.Sub(dueDate).Hours() / 24)
}

// Item is one open invoice balance feeding the report.
type Item struct {
	PartyID     int64
	PartyName   string
	InvoiceID   int64
	Number      string
	DueDate     time.Time
	Outstanding float64
}

// PartyAging groups bucketed balances for one counterparty.
type PartyAging struct {
	PartyID   int64              `json:"party_id"`
	PartyName string             `json:"party_name"`
	Buckets   map[Bucket]float64 `json:"buckets"`
	Total     float64            `json:"total"`
}

// Report is the full aging schedule as of a date.
type Report struct {
	AsOf    time.Time          `json:"as_of"`
	Parties []PartyAging       `json:"parties"`
	Totals  map[Bucket]float64 `json:"totals"`
	Total   float64            `json:"total"`
}

// Build partitions every outstanding balance into exactly one bucket. Items
// with no open balance are dropped.
func Build(asOf time.Time, items []Item) Report {
	report := Report{AsOf: asOf, Totals: make(map[Bucket]float64, len(Buckets))}
	byParty := make(map[int64]*PartyAging)
	order := make([]int64, 0)
	for _, item := range items {
		if item.Outstanding <= 0 {
			continue
		}
		bucket := BucketFor(DaysPastDue(asOf, item.DueDate))
		party, ok := byParty[item.PartyID]
		if !ok {
			party = &PartyAging{PartyID: item.PartyID, PartyName: item.PartyName, Buckets: make(map[Bucket]float64, len(Buckets))}
			byParty[item.PartyID] = party
			order = append(order, item.PartyID)
		}
		party.Buckets[bucket] += item.Outstanding
		party.Total += item.Outstanding
		report.Totals[bucket] += item.Outstanding
		report.Total += item.Outstanding
	}
	sort.Slice(order, func(i, j int) bool {
		return byParty[order[i]].PartyName < byParty[order[j]].PartyName
	})
	for _, id := range order {
		report.Parties = append(report.Parties, *byParty[id])
	}
	return report
}
