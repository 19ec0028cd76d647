package strategy

import (
	"context"
	"fmt"
	"time"

	"github-signal-radar/internal/domain"
)

// 新生仓库的两个 star 段位: 刚有人关注的和已经小爆的
var newbornBands = []starBand{
	{low: 10, high: 100},
	{low: 100, high: 100000},
}

// NewbornStrategy 新生仓库搜索: 建库不超过 N 天、已经攒到一些 star 且最近还在推代码
// 这是捕捉"火箭起飞"信号最直接的入口
type NewbornStrategy struct {
	fetcher     searcher
	newbornDays int
	recencyDays int
	nowFunc     func() time.Time
}

// NewNewbornStrategy 创建新生仓库搜索策略
func NewNewbornStrategy(fetcher searcher, newbornDays, recencyDays int) *NewbornStrategy {
	return &NewbornStrategy{
		fetcher:     fetcher,
		newbornDays: newbornDays,
		recencyDays: recencyDays,
		nowFunc:     time.Now,
	}
}

func (s *NewbornStrategy) Name() string { return "newborn" }

// Discover 按两个 star 段位分别搜索建库窗口内的活跃仓库
func (s *NewbornStrategy) Discover(ctx context.Context) ([]*domain.Candidate, error) {
	now := s.nowFunc()
	createdAfter := dateOnly(now.AddDate(0, 0, -s.newbornDays))
	pushedAfter := dateOnly(now.AddDate(0, 0, -s.recencyDays))

	var all []*domain.Candidate
	for _, band := range newbornBands {
		query := fmt.Sprintf("created:>%s stars:%d..%d pushed:>%s",
			createdAfter, band.low, band.high, pushedAfter)
		items, err := s.fetcher.SearchRepos(ctx, query, "stars", 50, 2)
		if err != nil {
			fmt.Printf("⚠️ [newborn] 段位 %d..%d 查询失败: %v\n", band.low, band.high, err)
			continue
		}
		for _, item := range items {
			if c := fromSearchItem(item, s.Name()); c != nil {
				all = append(all, c)
			}
		}
	}
	return all, nil
}
