package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePercentage(t *testing.T) {
	band := PercentageInput{MainCourse: true, Onboarded: true, OnboardingWeight: 5}
	cases := []struct {
		name string
		s    Summary
		in   PercentageInput
		want float64
	}{
		{"empty course", Summary{}, PercentageInput{}, 0},
		{"completed", Summary{Total: 4, Processed: 1, CourseCompleted: true}, PercentageInput{}, 100},
		{"plain quarter", Summary{Total: 4, Processed: 1}, PercentageInput{}, 25},
		{"rounded third", Summary{Total: 3, Processed: 1}, PercentageInput{}, 33.33},
		{"main course onboarded", Summary{Total: 4, Processed: 1}, band, 28.75},
		{"main course not onboarded", Summary{Total: 4, Processed: 1}, PercentageInput{MainCourse: true, OnboardingWeight: 5}, 23.75},
		{"main course custom weight", Summary{Total: 4, Processed: 2}, PercentageInput{MainCourse: true, Onboarded: true, OnboardingWeight: 10}, 55},
		{"main course nothing done", Summary{Total: 4}, band, 5},
		{"main course without band", Summary{Total: 4, Processed: 4}, PercentageInput{MainCourse: true, OnboardingWeight: 0}, 100},
		{"main course without band onboarded", Summary{Total: 4, Processed: 1}, PercentageInput{MainCourse: true, Onboarded: true}, 25},
		{"overcounted", Summary{Total: 2, Processed: 5}, PercentageInput{}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculatePercentage(tc.s, tc.in))
		})
	}
}

func TestCalculatePercentageBounds(t *testing.T) {
	for total := 0; total <= 12; total++ {
		for processed := 0; processed <= total; processed++ {
			for _, in := range []PercentageInput{{}, {MainCourse: true, OnboardingWeight: 5}, {MainCourse: true, Onboarded: true, OnboardingWeight: 5}} {
				got := CalculatePercentage(Summary{Total: total, Processed: processed}, in)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 100.0)
			}
		}
	}
}
