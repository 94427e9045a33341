package expenses

import (
	"fmt"
	"time"
)

// Policy holds the soft spending limits evaluated at submission.
type Policy struct {
	SingleItemLimit float64
	ReportLimit     float64
	MaxReceiptAge   time.Duration
}

// DefaultPolicy mirrors the finance team's standing guidance.
func DefaultPolicy() Policy {
	return Policy{
		SingleItemLimit: 500,
		ReportLimit:     5000,
		MaxReceiptAge:   90 * 24 * time.Hour,
	}
}

// Evaluate checks a report against the policy and returns advisories for
// every finding. An empty result means the report is within policy. Findings
// are returned alongside a successful submission, never as errors.
func (p Policy) Evaluate(now time.Time, report Report) []Advisory {
	var advisories []Advisory
	for i, line := range report.Lines {
		if p.SingleItemLimit > 0 && line.Amount > p.SingleItemLimit {
			advisories = append(advisories, Advisory{
				Code:      "item_over_limit",
				Message:   fmt.Sprintf("line %d amount %.2f exceeds the %.2f single item limit", i+1, line.Amount, p.SingleItemLimit),
				LineIndex: i,
			})
		}
		if p.MaxReceiptAge > 0 && !line.IncurredAt.IsZero() && now.Sub(line.IncurredAt) > p.MaxReceiptAge {
			advisories = append(advisories, Advisory{
				Code:      "stale_receipt",
				Message:   fmt.Sprintf("line %d was incurred more than %d days ago", i+1, int(p.MaxReceiptAge.Hours()/24)),
				LineIndex: i,
			})
		}
	}
	if p.ReportLimit > 0 && report.Total > p.ReportLimit {
		advisories = append(advisories, Advisory{
			Code:      "report_over_limit",
			Message:   fmt.Sprintf("report total %.2f exceeds the %.2f report limit", report.Total, p.ReportLimit),
			LineIndex: -1,
		})
	}
	return advisories
}
