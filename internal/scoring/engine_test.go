package scoring

import (
	"encoding/json"
	"testing"

	"github-signal-radar/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// healthy 返回一个没有任何惩罚形状的基准记录
func healthy() domain.Metrics {
	return domain.Metrics{
		Stars:        3000,
		Forks:        400,
		Contributors: 60,
		Stars7d:      300,
		Stars30d:     900,
		Commits30d:   40,
		Mentions7d:   5,
		Mentions30d:  15,
	}
}

func TestScore_RangeInvariant(t *testing.T) {
	// 覆盖各种极端输入，分数必须始终落在 [0, 100]
	records := []domain.Metrics{
		{},
		{Stars: 1, Stars7d: 1},
		{Stars: 1_000_000, Forks: 500_000, Contributors: 10_000, Stars7d: 100_000, Stars30d: 500_000, Commits30d: 10_000, Mentions7d: 9999, Mentions30d: 99999},
		{Stars7d: 600},                       // 惩罚形状
		{Stars: 50_000, Contributors: 1},     // 惩罚形状
		{Stars7d: 5000, Stars30d: 100},       // 不一致但可能出现的输入
		{Stars: -5, Stars7d: -1, Forks: -10}, // 防御: 负数不崩
		healthy(),
	}

	for _, m := range records {
		result := Score(m)
		assert.GreaterOrEqual(t, result.Score, 0)
		assert.LessOrEqual(t, result.Score, 100)
		assert.Equal(t, result.Score, result.Breakdown.Final)
	}
}

func TestScore_Deterministic(t *testing.T) {
	m := healthy()
	first := Score(m)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(m))
	}
}

func TestScore_AllZeroIsZero(t *testing.T) {
	result := Score(domain.Metrics{})
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 0.0, result.Breakdown.Raw)
	assert.Equal(t, 0.0, result.Breakdown.Penalty)
}

func TestScore_MonotonicInStarVelocity(t *testing.T) {
	prev := -1
	for _, stars7d := range []int{0, 5, 50, 200, 500, 1000, 5000} {
		m := healthy()
		m.Stars7d = stars7d
		score := Score(m).Score
		assert.GreaterOrEqual(t, score, prev, "stars7d=%d", stars7d)
		prev = score
	}
}

func TestScore_MonotonicInContributorRatio(t *testing.T) {
	prev := -1
	for _, contributors := range []int{0, 2, 10, 60, 300, 600} {
		m := healthy()
		m.Contributors = contributors
		score := Score(m).Score
		assert.GreaterOrEqual(t, score, prev, "contributors=%d", contributors)
		prev = score
	}
}

func TestScore_MonotonicInMentions(t *testing.T) {
	prev := -1
	for _, mentions := range []int{0, 1, 5, 20, 80, 400} {
		m := healthy()
		m.Mentions7d = mentions
		m.Mentions30d = mentions * 2
		score := Score(m).Score
		assert.GreaterOrEqual(t, score, prev, "mentions=%d", mentions)
		prev = score
	}
}

func TestScore_StarSpikeWithoutCommitsIsPenalized(t *testing.T) {
	spiked := healthy()
	spiked.Stars7d = 600
	spiked.Commits30d = 0

	honest := spiked
	honest.Commits30d = 80

	spikedResult := Score(spiked)
	honestResult := Score(honest)

	assert.Greater(t, spikedResult.Breakdown.Penalty, 0.0)
	assert.Equal(t, 15.0, spikedResult.Breakdown.Penalty)
	assert.Equal(t, 0.0, honestResult.Breakdown.Penalty)
	assert.Less(t, spikedResult.Score, honestResult.Score)
}

func TestScore_GraduatedSpikeThresholds(t *testing.T) {
	tests := []struct {
		name     string
		stars7d  int
		expected float64
	}{
		{name: "小幅暴涨", stars7d: 100, expected: 5},
		{name: "中幅暴涨", stars7d: 300, expected: 10},
		{name: "大幅暴涨", stars7d: 600, expected: 15},
		{name: "阈值之下不惩罚", stars7d: 99, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := healthy()
			m.Stars7d = tt.stars7d
			m.Commits30d = 0
			assert.Equal(t, tt.expected, Score(m).Breakdown.Penalty)
		})
	}
}

func TestScore_SoloMaintainerPenalty(t *testing.T) {
	m := healthy()
	m.Stars = 1500
	m.Contributors = 1

	result := Score(m)
	assert.Equal(t, 10.0, result.Breakdown.Penalty)

	m.Stars = 8000
	assert.Equal(t, 15.0, Score(m).Breakdown.Penalty)
}

func TestScore_PenaltyCappedAt30(t *testing.T) {
	m := domain.Metrics{
		Stars:        10000,
		Contributors: 1,
		Stars7d:      1000,
		Stars30d:     1200,
		Commits30d:   0,
	}
	result := Score(m)
	// 两条规则叠加 15 + 15，正好到顶
	assert.Equal(t, 30.0, result.Breakdown.Penalty)
}

func TestScore_LegitimateHighActivityNoPenalty(t *testing.T) {
	result := Score(healthy())
	assert.Equal(t, 0.0, result.Breakdown.Penalty)
	assert.Greater(t, result.Score, 0)
}

func TestScore_EarlyRocketScenario(t *testing.T) {
	m := domain.Metrics{
		Stars:        9000,
		Stars7d:      3000,
		Stars30d:     8000,
		Contributors: 450,
		Forks:        2700,
		Mentions7d:   12,
		Mentions30d:  25,
		Commits30d:   80,
	}
	result := Score(m)
	assert.Greater(t, result.Score, 70, "早期火箭场景必须拿到高分, got %d", result.Score)
	assert.Equal(t, 0.0, result.Breakdown.Penalty)
}

func TestResult_BreakdownJSON(t *testing.T) {
	result := Score(healthy())
	var decoded Breakdown
	require.NoError(t, json.Unmarshal([]byte(result.BreakdownJSON()), &decoded))
	assert.Equal(t, result.Breakdown, decoded)
	assert.Equal(t, result.Score, decoded.Final)
}
