package strategy

import (
	"context"
	"fmt"
	"time"

	"github-signal-radar/internal/adapter/archive"
	"github-signal-radar/internal/domain"
)

// starCounter 策略对归档读取器的最小依赖
type starCounter interface {
	CountStarEvents(ctx context.Context, buckets []string) map[int64]*archive.StarCount
}

// SurgeStrategy 事件归档扫描: 统计昨天一整天的 star 事件，超过阈值的仓库视为异动
// 归档数据不走 API 配额，能覆盖搜索完全触达不到的长尾
type SurgeStrategy struct {
	reader   starCounter
	minStars int
	nowFunc  func() time.Time
}

// NewSurgeStrategy 创建归档异动策略，minStars 是单日 star 事件数阈值
func NewSurgeStrategy(reader starCounter, minStars int) *SurgeStrategy {
	return &SurgeStrategy{
		reader:   reader,
		minStars: minStars,
		nowFunc:  time.Now,
	}
}

func (s *SurgeStrategy) Name() string { return "surge" }

// Discover 扫昨天 24 个小时桶，产出单日 star 数达标的候选
func (s *SurgeStrategy) Discover(ctx context.Context) ([]*domain.Candidate, error) {
	yesterday := s.nowFunc().AddDate(0, 0, -1)
	buckets := archive.DayBuckets(yesterday)

	counts := s.reader.CountStarEvents(ctx, buckets)

	var candidates []*domain.Candidate
	for _, sc := range counts {
		if sc.Count < s.minStars {
			continue
		}
		owner, name := splitFullName(sc.Name)
		if owner == "" || name == "" {
			continue
		}
		candidates = append(candidates, &domain.Candidate{
			ID:     sc.ID,
			Owner:  owner,
			Name:   name,
			Source: s.Name(),
		})
	}

	fmt.Printf("📦 [surge] 归档扫描完成: %d 个仓库有 star 事件, %d 个达到阈值 %d\n",
		len(counts), len(candidates), s.minStars)
	return candidates, nil
}
