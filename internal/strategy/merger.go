package strategy

import (
	"strings"

	"github-signal-radar/internal/domain"
)

// Result 一个策略跑完的产出
type Result struct {
	Strategy   string
	Candidates []*domain.Candidate
}

// Merge 按传入顺序 (即优先级顺序) 合并多个策略的候选
//
// 同一个仓库被多个策略发现时只保留第一次出现的那份，候选的 Source
// 因此记录的是优先级最高的发现来源。返回值附带每个策略独有贡献数，
// 用来观察各信号源的边际价值
func Merge(results []Result) ([]*domain.Candidate, map[string]int) {
	seenKey := make(map[string]bool)
	seenID := make(map[int64]bool)
	stats := make(map[string]int)
	var merged []*domain.Candidate

	for _, result := range results {
		stats[result.Strategy] = 0
		for _, c := range result.Candidates {
			if c == nil || c.Owner == "" || c.Name == "" {
				continue
			}
			key := mergeKey(c)
			// owner/name 和数字 ID 都是唯一标识，任何一个撞了都算重复
			if seenKey[key] || (c.ID != 0 && seenID[c.ID]) {
				continue
			}
			seenKey[key] = true
			if c.ID != 0 {
				seenID[c.ID] = true
			}
			stats[result.Strategy]++
			merged = append(merged, c)
		}
	}

	return merged, stats
}

// mergeKey 大小写不敏感的 owner/name 键，GitHub 仓库名不区分大小写
func mergeKey(c *domain.Candidate) string {
	return strings.ToLower(c.Owner + "/" + c.Name)
}
