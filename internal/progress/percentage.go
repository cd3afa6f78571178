package progress

import "math"

// PercentageInput 计算百分比所需的课程与学生信息
type PercentageInput struct {
	MainCourse bool
	Onboarded  bool
	// 主课程为入门环节保留的分值，0 表示不保留
	OnboardingWeight float64
}

// CalculatePercentage 将汇总转换为 [0,100] 的百分比
func CalculatePercentage(s Summary, in PercentageInput) float64 {
	if s.CourseCompleted {
		return 100
	}
	if s.Total <= 0 {
		return 0
	}
	raw := float64(s.Processed) / float64(s.Total) * 100

	pct := raw
	if in.MainCourse {
		w := in.OnboardingWeight
		pct = raw * (100 - w) / 100
		if in.Onboarded {
			pct += w
		}
	}
	return clampPercent(round2(pct))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPercent(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
