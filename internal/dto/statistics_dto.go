package dto

import (
	"time"

	"github.com/noah-isme/eduwork-api/internal/grading"
)

// StatisticsScope names the population a statistics summary covers.
type StatisticsScope string

const (
	StatisticsScopeGlobal  StatisticsScope = "global"
	StatisticsScopeCourse  StatisticsScope = "course"
	StatisticsScopeStudent StatisticsScope = "student"
	StatisticsScopeGroup   StatisticsScope = "group"
)

// StatisticsResponse is the aggregate view of a set of evaluations.
type StatisticsResponse struct {
	Scope        StatisticsScope          `json:"scope"`
	ScopeID      uint                     `json:"scope_id,omitempty"`
	Label        string                   `json:"label,omitempty"`
	Count        int                      `json:"count"`
	Average      float64                  `json:"average"`
	SuccessRate  float64                  `json:"success_rate"`
	Distribution []grading.BucketCount    `json:"distribution"`
	PerSubject   []grading.SubjectAverage `json:"per_subject"`
	GeneratedAt  time.Time                `json:"generated_at"`
	CacheHit     bool                     `json:"cache_hit"`
}

// NewStatisticsResponse wraps a grading summary.
func NewStatisticsResponse(scope StatisticsScope, scopeID uint, label string, summary grading.Summary, now time.Time) StatisticsResponse {
	return StatisticsResponse{
		Scope:        scope,
		ScopeID:      scopeID,
		Label:        label,
		Count:        summary.Count,
		Average:      summary.Average,
		SuccessRate:  summary.SuccessRate,
		Distribution: summary.Distribution,
		PerSubject:   summary.PerSubject,
		GeneratedAt:  now,
	}
}

// CourseStatisticsListResponse lists one summary per course space.
type CourseStatisticsListResponse struct {
	Items       []StatisticsResponse `json:"items"`
	GeneratedAt time.Time            `json:"generated_at"`
	CacheHit    bool                 `json:"cache_hit"`
}
