package notifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"TrendAllocator/internal/model"
	"TrendAllocator/internal/strategy"
)

const dateLayout = "2006-01-02"

// Sentinel state labels for runs that could not classify.
const (
	LabelDataUnavailable  = "data unavailable"
	LabelInsufficientData = "insufficient data"
)

// FormatPercent renders a fraction as a whole-number percentage, e.g.
// 0.7 -> "70%". The float product is rounded half to even, so 0.575 (57.49999...)
// gives "57%" and 0.125 (exactly 12.5) gives "12%".
func FormatPercent(fraction float64) string {
	pct := decimal.NewFromFloat(fraction * 100).RoundBank(0)
	return pct.String() + "%"
}

// FormatSubject renders the mail subject line.
func FormatSubject(ticker string, rec *model.Recommendation) string {
	return fmt.Sprintf("Weekly %s rebalancing alert (%s)", ticker, rec.Date.Format(dateLayout))
}

// FormatReport renders the recommendation and the full policy table.
func FormatReport(ticker string, rec *model.Recommendation, policy *strategy.PolicyTable, labels model.Labels) string {
	var b strings.Builder
	date := rec.Date.Format(dateLayout)

	b.WriteString("Hello,\n\n")
	b.WriteString(fmt.Sprintf("Current state and recommended allocation for %s as of %s.\n\n", ticker, date))

	b.WriteString("■ Current moving-average state\n")
	b.WriteString(fmt.Sprintf("-> %s\n\n", rec.StateLabel))

	b.WriteString("■ Recommended allocation (policy)\n")
	b.WriteString(fmt.Sprintf("-> %s\n\n", FormatPercent(rec.Allocation)))

	b.WriteString("---\n")
	b.WriteString("[Reference: full policy table]\n")
	for _, e := range policy.Entries() {
		b.WriteString(fmt.Sprintf("- %-25s: %s\n", e.State.Label(labels), FormatPercent(e.Allocation)))
	}

	return strings.TrimSpace(b.String())
}

// Compose builds the message for a recommendation.
func Compose(ticker string, rec *model.Recommendation, policy *strategy.PolicyTable, labels model.Labels) Message {
	return Message{
		Subject: FormatSubject(ticker, rec),
		Body:    FormatReport(ticker, rec, policy, labels),
	}
}
