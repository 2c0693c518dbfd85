package grading

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduwork-api/internal/models"
)

func samplesOf(grades ...float64) []Sample {
	samples := make([]Sample, 0, len(grades))
	for i, grade := range grades {
		samples = append(samples, Sample{EvaluationID: uint(i + 1), Grade: grade, CourseSpaceID: 1, CourseName: "Algorithms"})
	}
	return samples
}

func TestAggregatesOfReferenceGrades(t *testing.T) {
	samples := samplesOf(18, 15, 9, 20)

	require.InDelta(t, 15.5, CourseAverage(samples), 1e-9)
	require.InDelta(t, 75.0, SuccessRate(samples), 1e-9)

	distribution := Distribution(samples, DefaultBuckets())
	require.Len(t, distribution, 4)
	require.Equal(t, 1, distribution[0].Count)
	require.Equal(t, 0, distribution[1].Count)
	require.Equal(t, 1, distribution[2].Count)
	require.Equal(t, 2, distribution[3].Count)
}

func TestAggregatesOfEmptySet(t *testing.T) {
	require.Zero(t, CourseAverage(nil))
	require.Zero(t, SuccessRate(nil))
	for _, bucket := range Distribution(nil, nil) {
		require.Zero(t, bucket.Count)
	}
	require.Empty(t, PerSubjectAverages(nil))
}

func TestDistributionBoundaries(t *testing.T) {
	counts := Distribution(samplesOf(0, 11.99, 12, 14, 16, 20), nil)
	require.Equal(t, []int{2, 1, 1, 2}, []int{counts[0].Count, counts[1].Count, counts[2].Count, counts[3].Count})
}

func TestAggregationDoesNotMutateInput(t *testing.T) {
	samples := []Sample{
		{Grade: 12, CourseSpaceID: 2, CourseName: "Databases"},
		{Grade: 8, CourseSpaceID: 1, CourseName: "Algorithms"},
	}
	snapshot := append([]Sample(nil), samples...)

	_ = Summarize(samples)
	require.Equal(t, snapshot, samples)
}

func TestPerSubjectAveragesSortedByName(t *testing.T) {
	samples := Flatten(
		[]Sample{
			{Grade: 10, CourseSpaceID: 3, CourseName: "Networks", Source: models.TargetIndividual},
			{Grade: 14, CourseSpaceID: 1, CourseName: "Algorithms", Source: models.TargetIndividual},
		},
		[]Sample{
			{Grade: 16, CourseSpaceID: 1, CourseName: "Algorithms", Source: models.TargetGroup},
			{Grade: 12, CourseSpaceID: 2, CourseName: "databases", Source: models.TargetGroup},
		},
	)

	averages := PerSubjectAverages(samples)
	require.Len(t, averages, 3)
	require.Equal(t, "Algorithms", averages[0].CourseName)
	require.InDelta(t, 15.0, averages[0].Average, 1e-9)
	require.Equal(t, 2, averages[0].Count)
	require.Equal(t, "databases", averages[1].CourseName)
	require.Equal(t, "Networks", averages[2].CourseName)
}

func TestBands(t *testing.T) {
	require.Equal(t, BandExcellent, BandOf(16))
	require.Equal(t, BandGood, BandOf(14))
	require.Equal(t, BandPassable, BandOf(12))
	require.Equal(t, BandInsufficient, BandOf(11.5))
	require.True(t, IsSuccess(10))
	require.False(t, IsSuccess(9.99))
}
