package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github-signal-radar/internal/domain"
)

// starBand 一个闭区间的 star 数段位
type starBand struct {
	low, high int
}

// 搜索 API 单查询最多返回 1000 条，分段位 + 分语言能拿到更深的结果
var midTierBands = []starBand{
	{low: 100, high: 2000},
	{low: 2000, high: 10000},
}

// MidTierStrategy 中段位搜索: 按 star 段位 x 语言分片搜近期活跃的腰部仓库
// 腰部仓库是排行榜最容易漏掉的，它们还没上 trending 但增长曲线已经起来了
type MidTierStrategy struct {
	fetcher     searcher
	languages   []string
	recencyDays int
	nowFunc     func() time.Time
}

// NewMidTierStrategy 创建中段位搜索策略
func NewMidTierStrategy(fetcher searcher, languages []string, recencyDays int) *MidTierStrategy {
	return &MidTierStrategy{
		fetcher:     fetcher,
		languages:   languages,
		recencyDays: recencyDays,
		nowFunc:     time.Now,
	}
}

func (s *MidTierStrategy) Name() string { return "midtier" }

// Discover 每个段位按语言分片查询，最后补一个排除所有已查语言的兜底分片
func (s *MidTierStrategy) Discover(ctx context.Context) ([]*domain.Candidate, error) {
	pushedAfter := dateOnly(s.nowFunc().AddDate(0, 0, -s.recencyDays))
	var all []*domain.Candidate

	for _, band := range midTierBands {
		base := fmt.Sprintf("stars:%d..%d pushed:>%s", band.low, band.high, pushedAfter)

		for _, lang := range s.languages {
			query := fmt.Sprintf("%s language:%s", base, lang)
			all = append(all, s.search(ctx, query)...)
		}

		// 兜底分片: 不属于任何跟踪语言的仓库
		var excludes []string
		for _, lang := range s.languages {
			excludes = append(excludes, "-language:"+lang)
		}
		catchAll := base
		if len(excludes) > 0 {
			catchAll = base + " " + strings.Join(excludes, " ")
		}
		all = append(all, s.search(ctx, catchAll)...)
	}

	return all, nil
}

func (s *MidTierStrategy) search(ctx context.Context, query string) []*domain.Candidate {
	items, err := s.fetcher.SearchRepos(ctx, query, "updated", 50, 2)
	if err != nil {
		// 分片之间互不影响，失败的分片丢掉继续
		fmt.Printf("⚠️ [midtier] 分片查询失败 (%s): %v\n", query, err)
		return nil
	}
	var out []*domain.Candidate
	for _, item := range items {
		if c := fromSearchItem(item, s.Name()); c != nil {
			out = append(out, c)
		}
	}
	return out
}
