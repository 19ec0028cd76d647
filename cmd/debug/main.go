package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github-signal-radar/internal/adapter/forum"
	"github-signal-radar/internal/adapter/github"
	"github-signal-radar/internal/collector"
	"github-signal-radar/internal/config"
	"github-signal-radar/internal/domain"
	"github-signal-radar/internal/scoring"
	"github-signal-radar/internal/strategy"
)

// 调试驱动: 不碰数据库不调 AI，跑一遍 发现 → 采集 → 评分 把中间结果全打出来
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 配置加载失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	quota := github.NewQuotaGovernor(cfg.QuotaFloor, cfg.QuotaMargin())
	fetcher := github.NewFetcher(cfg.GithubToken, quota, cfg.QuotaCooldown())
	forumClient := forum.NewClient(cfg.ForumBaseURL)
	signals := collector.NewCollector(fetcher, forumClient, nopSnapshots{})

	fmt.Println("🔍 调试模式：跑一遍新生仓库策略并评分")

	newborn := strategy.NewNewbornStrategy(fetcher, cfg.NewbornDays, cfg.RecencyDays)
	candidates, err := newborn.Discover(ctx)
	if err != nil {
		log.Fatalf("❌ 发现失败: %v", err)
	}
	fmt.Printf("✅ 发现 %d 个候选\n", len(candidates))

	// 只看前几个，别把配额烧光
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}

	for _, c := range candidates {
		repo, metrics, err := signals.Collect(ctx, c)
		if err != nil {
			fmt.Printf("❌ %s 采集失败: %v\n", c.FullName(), err)
			continue
		}
		result := scoring.Score(*metrics)
		fmt.Printf("\n📦 %s (⭐%d)\n", repo.FullName(), repo.Stars)
		fmt.Printf("   指标: 7天+%d star / 30天+%d star / 30天 %d 提交 / %d 贡献者 / 提及 %d+%d\n",
			metrics.Stars7d, metrics.Stars30d, metrics.Commits30d,
			metrics.Contributors, metrics.Mentions7d, metrics.Mentions30d)
		fmt.Printf("   评分: %d 明细: %s\n", result.Score, result.BreakdownJSON())
	}

	remaining, reset := quota.Snapshot()
	fmt.Printf("\n📉 剩余配额: %d (重置于 %s)\n", remaining, reset.Format(time.RFC3339))
}

// nopSnapshots 调试模式不连数据库，star 增量永远走 stargazer 回扫
type nopSnapshots struct{}

func (nopSnapshots) SnapshotOn(ctx context.Context, repoID int64, date string) (*domain.Snapshot, error) {
	return nil, nil
}
