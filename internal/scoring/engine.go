package scoring

import (
	"encoding/json"
	"math"

	"github-signal-radar/internal/domain"
)

// 归一化刻度: 把"什么量级算满分"写死成常量
// 这些是产品调出来的经验值，改动属于需要 review 的刻意决策，不是推导出的数据
const (
	scaleStars7d  = 1000.0 // 一周新增 1000 star 记满分
	scaleStars30d = 3000.0
	scaleCommits  = 100.0 // 30 天 100 次提交记满分
	scaleMentions = 100.0 // 7 天 + 30 天提及数合计 100 记满分
	scaleAccel    = 4.0   // 周环比增速 5 倍 (ratio-1 == 4) 记满分

	targetContribRatio = 0.2 // 每 star 0.2 个贡献者记满分
	targetForkRatio    = 0.3 // 每 star 0.3 个 fork 记满分
)

// 权重表: 固定常量，合计 1.00
const (
	weightStars7d      = 0.30
	weightStars30d     = 0.15
	weightCommits      = 0.10
	weightMentions     = 0.10
	weightContribRatio = 0.15
	weightForkRatio    = 0.10
	weightAccel        = 0.10
)

// 操纵惩罚的分级阈值
// 规则一: 7 天暴涨但 30 天几乎没有提交 (买 star 的典型形状)
// 规则二: star 总量很大但贡献者不足 2 人 (单人刷量)
const (
	penaltyMaxTotal = 30.0

	lowCommitCeiling = 3 // 30 天提交少于这个数算"几乎没有提交"

	spikeStarsHigh = 600
	spikeStarsMid  = 300
	spikeStarsLow  = 100

	soloStarsHigh = 5000
	soloStarsLow  = 1000
)

// Breakdown 评分明细: 每个信号的 0-100 子分、惩罚、加权原始分、最终分
type Breakdown struct {
	StarVelocity7d   float64 `json:"star_velocity_7d"`
	StarVelocity30d  float64 `json:"star_velocity_30d"`
	CommitFrequency  float64 `json:"commit_frequency"`
	ForumMentions    float64 `json:"forum_mentions"`
	ContributorRatio float64 `json:"contributor_ratio"`
	ForkRatio        float64 `json:"fork_ratio"`
	Acceleration     float64 `json:"acceleration"`
	Penalty          float64 `json:"penalty"`
	Raw              float64 `json:"raw"`
	Final            int     `json:"final_score"`
}

// Result 评分结果，Score 恒等于 Breakdown.Final
type Result struct {
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// BreakdownJSON 明细的 JSON 文本，直接落库
func (r Result) BreakdownJSON() string {
	data, err := json.Marshal(r.Breakdown)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Score 纯函数: 同样的指标记录永远得到同样的分数，任何非负输入都不会 panic
// 分数恒为 [0, 100] 的整数
func Score(m domain.Metrics) Result {
	b := Breakdown{
		StarVelocity7d:   logNorm(float64(m.Stars7d), scaleStars7d),
		StarVelocity30d:  logNorm(float64(m.Stars30d), scaleStars30d),
		CommitFrequency:  logNorm(float64(m.Commits30d), scaleCommits),
		ForumMentions:    logNorm(float64(m.Mentions7d+m.Mentions30d), scaleMentions),
		ContributorRatio: ratioNorm(m.Contributors, m.Stars, targetContribRatio),
		ForkRatio:        ratioNorm(m.Forks, m.Stars, targetForkRatio),
		Acceleration:     accelNorm(m.Stars7d, m.Stars30d),
	}

	b.Raw = b.StarVelocity7d*weightStars7d +
		b.StarVelocity30d*weightStars30d +
		b.CommitFrequency*weightCommits +
		b.ForumMentions*weightMentions +
		b.ContributorRatio*weightContribRatio +
		b.ForkRatio*weightForkRatio +
		b.Acceleration*weightAccel

	b.Penalty = manipulationPenalty(m)
	b.Final = int(math.Round(clamp(b.Raw-b.Penalty, 0, 100)))

	return Result{Score: b.Final, Breakdown: b}
}

// logNorm 重尾计数信号的对数归一化: scale 对应的量级映射到 100
func logNorm(value, scale float64) float64 {
	if value <= 0 || scale <= 0 {
		return 0
	}
	return clamp(math.Log(value+1)/math.Log(scale+1)*100, 0, 100)
}

// ratioNorm 比率信号的线性归一化: value/base 达到 target 映射到 100
func ratioNorm(value, base int, target float64) float64 {
	if value <= 0 || base <= 0 {
		return 0
	}
	ratio := float64(value) / float64(base)
	return clamp(ratio/target*100, 0, 100)
}

// accelNorm 加速度信号: 本周速度对比上周均值
// 只有在加速 (ratio > 1) 时给分，走平或减速恒为 0，从不为负
func accelNorm(stars7d, stars30d int) float64 {
	if stars7d <= 0 {
		return 0
	}
	prior := stars30d - stars7d
	if prior <= 0 {
		// 30 天的增长全部发生在本周，按最强加速处理
		return 100
	}
	// 剩余 23 天折算成周均
	priorWeekly := float64(prior) / (23.0 / 7.0)
	ratio := float64(stars7d) / priorWeekly
	if ratio <= 1 {
		return 0
	}
	return logNorm(ratio-1, scaleAccel)
}

// manipulationPenalty 反操纵惩罚，多条规则叠加，合计封顶 30
func manipulationPenalty(m domain.Metrics) float64 {
	p := 0.0

	// 买 star 形状: 一周暴涨 + 30 天几乎没有提交，三级阈值
	if m.Commits30d < lowCommitCeiling {
		switch {
		case m.Stars7d >= spikeStarsHigh:
			p += 15
		case m.Stars7d >= spikeStarsMid:
			p += 10
		case m.Stars7d >= spikeStarsLow:
			p += 5
		}
	}

	// 单人刷量形状: star 总量大但贡献者不足 2 人，两级阈值
	if m.Contributors < 2 {
		switch {
		case m.Stars >= soloStarsHigh:
			p += 15
		case m.Stars >= soloStarsLow:
			p += 10
		}
	}

	if p > penaltyMaxTotal {
		p = penaltyMaxTotal
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
