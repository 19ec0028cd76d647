package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github-signal-radar/internal/domain"
)

// Category 一个类目和它的代表性 topic 标签
type Category struct {
	Name   string
	Topics []string
}

// DefaultCategories 固定的类目表，标签按代表性排序
// 每个类目只查前面少数几个标签，控制配额消耗
var DefaultCategories = []Category{
	{Name: "ai", Topics: []string{"llm", "ai-agents", "machine-learning"}},
	{Name: "devtools", Topics: []string{"developer-tools", "cli", "ide"}},
	{Name: "infra", Topics: []string{"kubernetes", "observability", "devops"}},
	{Name: "database", Topics: []string{"database", "vector-database"}},
	{Name: "security", Topics: []string{"security", "pentesting"}},
}

// 每个类目最多查的标签数，配额是账号级的，省着点花
const topicsPerCategory = 2

// CategoryStrategy 类目/topic 搜索: 按类目的代表性标签搜高 star 且近期活跃的仓库
type CategoryStrategy struct {
	fetcher     searcher
	categories  []Category
	minStars    int
	recencyDays int
	topK        int
	nowFunc     func() time.Time
}

// NewCategoryStrategy 创建类目搜索策略
func NewCategoryStrategy(fetcher searcher, minStars, recencyDays, topK int) *CategoryStrategy {
	return &CategoryStrategy{
		fetcher:     fetcher,
		categories:  DefaultCategories,
		minStars:    minStars,
		recencyDays: recencyDays,
		topK:        topK,
		nowFunc:     time.Now,
	}
}

func (s *CategoryStrategy) Name() string { return "category" }

// Discover 逐类目搜索: 标签内合并、按 ID 去重、按 star 数取 top-K
func (s *CategoryStrategy) Discover(ctx context.Context) ([]*domain.Candidate, error) {
	pushedAfter := dateOnly(s.nowFunc().AddDate(0, 0, -s.recencyDays))
	var all []*domain.Candidate

	for _, category := range s.categories {
		topics := category.Topics
		if len(topics) > topicsPerCategory {
			topics = topics[:topicsPerCategory]
		}

		seen := make(map[int64]bool)
		var categoryHits []*domain.Candidate
		for _, topic := range topics {
			query := fmt.Sprintf("topic:%s stars:>=%d pushed:>%s", topic, s.minStars, pushedAfter)
			items, err := s.fetcher.SearchRepos(ctx, query, "stars", 30, 1)
			if err != nil {
				// 单条查询失败只丢这个标签，类目内其他标签继续
				fmt.Printf("⚠️ [category] 标签 %s 查询失败: %v\n", topic, err)
				continue
			}
			for _, item := range items {
				c := fromSearchItem(item, s.Name())
				if c == nil || seen[c.ID] {
					continue
				}
				seen[c.ID] = true
				categoryHits = append(categoryHits, c)
			}
		}

		sort.Slice(categoryHits, func(i, j int) bool {
			return categoryHits[i].Stars > categoryHits[j].Stars
		})
		if len(categoryHits) > s.topK {
			categoryHits = categoryHits[:s.topK]
		}
		all = append(all, categoryHits...)
	}

	return all, nil
}
