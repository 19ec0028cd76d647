package service

import (
	"time"

	"github-signal-radar/internal/domain"
	"github-signal-radar/internal/scoring"
)

// needsEnrich 判断要不要重新调用 AI 鉴定
// 叙述文本允许滞后: 只有没有缓存、或者新旧分数差超过阈值时才重新生成。
// 分数本身永远不走缓存，每轮都按最新指标重算重写
func needsEnrich(cached *domain.Enrichment, newScore, threshold int) bool {
	if cached == nil {
		return true
	}
	diff := cached.Score - newScore
	if diff < 0 {
		diff = -diff
	}
	return diff > threshold
}

// buildEnrichment 组装要落库的富化记录
// fresh 是本轮 AI 产出 (可以为 nil)，取不到新文本时沿用缓存的旧文本，
// 分数和明细永远用本轮重算的结果
func buildEnrichment(repoID int64, cached, fresh *domain.Enrichment, result scoring.Result, now time.Time) *domain.Enrichment {
	row := &domain.Enrichment{
		RepoID:     repoID,
		Score:      result.Score,
		Breakdown:  result.BreakdownJSON(),
		ComputedAt: now,
	}

	texts := fresh
	if texts == nil {
		texts = cached
	}
	if texts != nil {
		row.Summary = texts.Summary
		row.Rationale = texts.Rationale
		row.Category = texts.Category
	}
	return row
}
