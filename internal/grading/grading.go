// Package grading holds the grade scale rules and the pure aggregation
// functions used by statistics views.
package grading

import (
	"sort"
	"strings"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// PassingGrade is the minimum grade counted as a success.
const PassingGrade = 10.0

// Band is the presentation label of a grade.
type Band string

const (
	BandExcellent    Band = "Excellent"
	BandGood         Band = "Good"
	BandPassable     Band = "Passable"
	BandInsufficient Band = "Insufficient"
)

// BandOf labels grade: >=16 Excellent, >=14 Good, >=12 Passable, otherwise Insufficient.
func BandOf(grade float64) Band {
	switch {
	case grade >= 16:
		return BandExcellent
	case grade >= 14:
		return BandGood
	case grade >= 12:
		return BandPassable
	default:
		return BandInsufficient
	}
}

// IsSuccess reports whether grade reaches PassingGrade.
func IsSuccess(grade float64) bool {
	return grade >= PassingGrade
}

// Source tells whether a sample comes from an individual or a group submission.
type Source = models.TargetKind

// Sample is one evaluated grade with the context needed for grouping.
type Sample struct {
	EvaluationID  uint    `json:"evaluation_id"`
	Grade         float64 `json:"grade"`
	Source        Source  `json:"source"`
	WorkID        uint    `json:"work_id"`
	CourseSpaceID uint    `json:"course_space_id"`
	CourseName    string  `json:"course_name"`
}

// Flatten merges sample sets from heterogeneous sources into one stream.
func Flatten(sets ...[]Sample) []Sample {
	total := 0
	for _, set := range sets {
		total += len(set)
	}
	merged := make([]Sample, 0, total)
	for _, set := range sets {
		merged = append(merged, set...)
	}
	return merged
}

// Grades extracts the grade stream of samples.
func Grades(samples []Sample) []float64 {
	grades := make([]float64, 0, len(samples))
	for _, sample := range samples {
		grades = append(grades, sample.Grade)
	}
	return grades
}

// Average is the arithmetic mean of grades, 0 for an empty set.
func Average(grades []float64) float64 {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, grade := range grades {
		sum += grade
	}
	return sum / float64(len(grades))
}

// CourseAverage is the mean grade of samples, 0 when empty.
func CourseAverage(samples []Sample) float64 {
	return Average(Grades(samples))
}

// SuccessRate is the percentage of samples graded >= PassingGrade, 0 when empty.
func SuccessRate(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	passed := 0
	for _, sample := range samples {
		if IsSuccess(sample.Grade) {
			passed++
		}
	}
	return float64(passed) / float64(len(samples)) * 100
}

// Bucket is a grade band [Min, Max). Closed makes the upper bound inclusive.
type Bucket struct {
	Label  string
	Min    float64
	Max    float64
	Closed bool
}

// Contains reports whether grade falls inside the bucket.
func (b Bucket) Contains(grade float64) bool {
	if grade < b.Min {
		return false
	}
	if b.Closed {
		return grade <= b.Max
	}
	return grade < b.Max
}

// DefaultBuckets returns [0,12), [12,14), [14,16), [16,20].
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Label: "0-12", Min: 0, Max: 12},
		{Label: "12-14", Min: 12, Max: 14},
		{Label: "14-16", Min: 14, Max: 16},
		{Label: "16-20", Min: 16, Max: 20, Closed: true},
	}
}

// BucketCount is the number of grades that fell into a bucket.
type BucketCount struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Distribution counts samples per bucket, in bucket order. A grade is counted
// in the first bucket that contains it. Nil buckets mean DefaultBuckets.
func Distribution(samples []Sample, buckets []Bucket) []BucketCount {
	if buckets == nil {
		buckets = DefaultBuckets()
	}

	counts := make([]BucketCount, len(buckets))
	for i, bucket := range buckets {
		counts[i] = BucketCount{Label: bucket.Label, Min: bucket.Min, Max: bucket.Max}
	}

	for _, sample := range samples {
		for i, bucket := range buckets {
			if bucket.Contains(sample.Grade) {
				counts[i].Count++
				break
			}
		}
	}
	return counts
}

// SubjectAverage is the average grade of one course space.
type SubjectAverage struct {
	CourseSpaceID uint    `json:"course_space_id"`
	CourseName    string  `json:"course_name"`
	Average       float64 `json:"average"`
	Count         int     `json:"count"`
}

// PerSubjectAverages groups samples by course space and returns one average
// per course sorted by course name, then identifier.
func PerSubjectAverages(samples []Sample) []SubjectAverage {
	type accumulator struct {
		name  string
		sum   float64
		count int
	}

	byCourse := map[uint]*accumulator{}
	for _, sample := range samples {
		acc, ok := byCourse[sample.CourseSpaceID]
		if !ok {
			acc = &accumulator{name: sample.CourseName}
			byCourse[sample.CourseSpaceID] = acc
		}
		acc.sum += sample.Grade
		acc.count++
	}

	result := make([]SubjectAverage, 0, len(byCourse))
	for id, acc := range byCourse {
		result = append(result, SubjectAverage{
			CourseSpaceID: id,
			CourseName:    acc.name,
			Average:       acc.sum / float64(acc.count),
			Count:         acc.count,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		left := strings.ToLower(result[i].CourseName)
		right := strings.ToLower(result[j].CourseName)
		if left != right {
			return left < right
		}
		return result[i].CourseSpaceID < result[j].CourseSpaceID
	})
	return result
}

// Summary bundles the aggregates shown on a statistics card.
type Summary struct {
	Count        int              `json:"count"`
	Average      float64          `json:"average"`
	SuccessRate  float64          `json:"success_rate"`
	Distribution []BucketCount    `json:"distribution"`
	PerSubject   []SubjectAverage `json:"per_subject"`
}

// Summarize computes every aggregate of samples with the default buckets.
func Summarize(samples []Sample) Summary {
	return Summary{
		Count:        len(samples),
		Average:      CourseAverage(samples),
		SuccessRate:  SuccessRate(samples),
		Distribution: Distribution(samples, nil),
		PerSubject:   PerSubjectAverages(samples),
	}
}
