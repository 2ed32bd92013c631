package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateBannedKeyword(t *testing.T) {
	t.Parallel()

	decision := Evaluate("서바이벌 총기 모형 세트")

	assert.Equal(t, RiskHigh, decision.Risk)
	assert.True(t, decision.Blocked)
	if assert.Len(t, decision.Reasons, 1) {
		assert.Contains(t, decision.Reasons[0], "금지 키워드 탐지")
		assert.Contains(t, decision.Reasons[0], "총기")
	}
}

func TestEvaluateBannedKeywordCaseFolded(t *testing.T) {
	t.Parallel()

	decision := Evaluate("Herbal MEDICINE set")

	assert.True(t, decision.Blocked)
	assert.Contains(t, decision.Reasons[0], "medicine")
}

func TestEvaluateHighRiskNotBlocked(t *testing.T) {
	t.Parallel()

	decision := Evaluate("휴대용 Battery 충전기 10000mAh")

	assert.Equal(t, RiskHigh, decision.Risk)
	assert.False(t, decision.Blocked)
	if assert.Len(t, decision.Reasons, 1) {
		assert.Contains(t, decision.Reasons[0], "고위험 검수 필요")
		assert.Contains(t, decision.Reasons[0], "battery")
	}
}

func TestEvaluateBannedWinsOverHighRisk(t *testing.T) {
	t.Parallel()

	decision := Evaluate("성인용 전기 면도기")

	assert.True(t, decision.Blocked)
	assert.Contains(t, decision.Reasons[0], "성인")
	assert.NotContains(t, decision.Reasons[0], "고위험")
}

func TestEvaluateCleanTitle(t *testing.T) {
	t.Parallel()

	decision := Evaluate("무선 이어폰 화이트")

	assert.Equal(t, RiskLow, decision.Risk)
	assert.False(t, decision.Blocked)
	assert.NotNil(t, decision.Reasons)
	assert.Empty(t, decision.Reasons)
}
