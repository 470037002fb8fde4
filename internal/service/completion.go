package service

import "steam-achiever/internal/domain"

type Completion struct {
	Achieved  int
	Total     int
	Percent   int
	Remaining int
}

// ComputeCompletion counts achieved records. Percent is achieved/total*100
// rounded half to even; an empty list is 0%.
func ComputeCompletion(records []domain.AchievementRecord) Completion {
	achieved := 0
	for _, r := range records {
		if r.Achieved {
			achieved++
		}
	}
	total := len(records)

	return Completion{
		Achieved:  achieved,
		Total:     total,
		Percent:   roundedPercent(achieved, total),
		Remaining: total - achieved,
	}
}

func roundedPercent(achieved, total int) int {
	if total <= 0 {
		return 0
	}

	num := achieved * 100
	q, r := num/total, num%total
	switch {
	case 2*r > total:
		q++
	case 2*r == total && q%2 == 1:
		q++
	}
	return q
}
