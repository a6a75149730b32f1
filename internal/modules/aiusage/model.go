// README: Monthly shift-briefing allowance per caller.
package aiusage

import "errors"

// ErrQuotaExceeded is returned when a caller has no briefings left this month.
var ErrQuotaExceeded = errors.New("briefing quota exceeded")

// DefaultMonthlyBriefings is the allowance granted at every monthly reset.
const DefaultMonthlyBriefings = 30

// monthKey formats the month a counter belongs to, e.g. "2024-03".
const monthKey = "2006-01"
