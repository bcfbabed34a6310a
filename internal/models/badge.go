package models

type BadgeCriterion string

const (
	CriterionQuestionCount   BadgeCriterion = "QUESTION_COUNT"
	CriterionAnswerCount     BadgeCriterion = "ANSWER_COUNT"
	CriterionQuestionUpvotes BadgeCriterion = "QUESTION_UPVOTES"
	CriterionTotalViews      BadgeCriterion = "TOTAL_VIEWS"
)

type BadgeThresholds struct {
	Bronze int
	Silver int
	Gold   int
}

var BadgeCriteria = map[BadgeCriterion]BadgeThresholds{
	CriterionQuestionCount:   {Bronze: 1, Silver: 5, Gold: 10},
	CriterionAnswerCount:     {Bronze: 1, Silver: 5, Gold: 10},
	CriterionQuestionUpvotes: {Bronze: 1, Silver: 5, Gold: 10},
	CriterionTotalViews:      {Bronze: 100, Silver: 1000, Gold: 10000},
}

type BadgeCounts struct {
	Gold   int `json:"GOLD"`
	Silver int `json:"SILVER"`
	Bronze int `json:"BRONZE"`
}

type CriterionCount struct {
	Kind  BadgeCriterion
	Count int
}

// AssignBadges counts, for each tier, how many criteria meet or exceed that
// tier's threshold. A single criterion can contribute to all three tiers.
func AssignBadges(criteria []CriterionCount) BadgeCounts {
	var counts BadgeCounts
	for _, c := range criteria {
		levels, ok := BadgeCriteria[c.Kind]
		if !ok {
			continue
		}
		if c.Count >= levels.Bronze {
			counts.Bronze++
		}
		if c.Count >= levels.Silver {
			counts.Silver++
		}
		if c.Count >= levels.Gold {
			counts.Gold++
		}
	}
	return counts
}

type UserStats struct {
	TotalQuestions int         `json:"totalQuestions"`
	TotalAnswers   int         `json:"totalAnswers"`
	Badges         BadgeCounts `json:"badges"`
}
