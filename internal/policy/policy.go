package policy

import (
	"fmt"
	"strings"
)

// Risk levels reported by the gate.
const (
	RiskLow  = "low"
	RiskHigh = "high"
)

// Keyword lists are matched against the case-folded localized title.
// Banned keywords block outright; high-risk ones only demand review.
var bannedKeywords = []string{
	"medicine",
	"drug",
	"health cure",
	"성인",
	"총기",
	"칼",
}

var highRiskKeywords = []string{
	"battery",
	"화학",
	"영유아",
	"전기",
	"식품",
}

// Decision is the content-policy verdict for one listing title.
type Decision struct {
	Risk    string
	Blocked bool
	Reasons []string
}

// Evaluate classifies a title. Banned keywords win over high-risk ones;
// a clean title yields low risk with no reasons.
func Evaluate(title string) Decision {
	normalized := strings.ToLower(title)

	if hits := matches(normalized, bannedKeywords); len(hits) > 0 {
		return Decision{
			Risk:    RiskHigh,
			Blocked: true,
			Reasons: []string{fmt.Sprintf("금지 키워드 탐지: %s", strings.Join(hits, ", "))},
		}
	}

	if hits := matches(normalized, highRiskKeywords); len(hits) > 0 {
		return Decision{
			Risk:    RiskHigh,
			Blocked: false,
			Reasons: []string{fmt.Sprintf("고위험 검수 필요: %s", strings.Join(hits, ", "))},
		}
	}

	return Decision{Risk: RiskLow, Blocked: false, Reasons: []string{}}
}

func matches(normalized string, keywords []string) []string {
	var hits []string
	for _, k := range keywords {
		if strings.Contains(normalized, k) {
			hits = append(hits, k)
		}
	}
	return hits
}
