// Package deadline classifies how urgent a due date is relative to a reference time.
package deadline

import (
	"math"
	"time"
)

// Tier is the urgency classification of a due date.
type Tier string

const (
	TierOverdue Tier = "overdue"
	TierUrgent  Tier = "urgent"
	TierWarning Tier = "warning"
	TierNormal  Tier = "normal"
)

const (
	urgentDays  = 3
	warningDays = 7
	day         = 24 * time.Hour
)

// Classification is the result of classifying a due date.
type Classification struct {
	DaysRemaining int  `json:"days_remaining"`
	Tier          Tier `json:"tier"`
}

// Overdue reports whether the deadline has been reached.
func (c Classification) Overdue() bool {
	return c.Tier == TierOverdue
}

// DaysRemaining returns the ceiling of the real number of days between now and due.
// Negative values mean the deadline is behind us.
func DaysRemaining(due, now time.Time) int {
	diff := due.Sub(now)
	return int(math.Ceil(float64(diff) / float64(day)))
}

// Classify maps due to a tier: overdue when days <= 0, urgent up to 3 days,
// warning up to 7 days, normal beyond.
func Classify(due, now time.Time) Classification {
	days := DaysRemaining(due, now)

	tier := TierNormal
	switch {
	case days <= 0:
		tier = TierOverdue
	case days <= urgentDays:
		tier = TierUrgent
	case days <= warningDays:
		tier = TierWarning
	}

	return Classification{DaysRemaining: days, Tier: tier}
}
