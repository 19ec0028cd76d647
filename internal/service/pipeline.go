package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github-signal-radar/internal/common"
	"github-signal-radar/internal/domain"
	"github-signal-radar/internal/port"
	"github-signal-radar/internal/scoring"
	"github-signal-radar/internal/strategy"
)

// Options 管道的运行参数
type Options struct {
	// Concurrency 信号收集的并发 worker 数
	Concurrency int
	// RescoreThreshold 新旧分数差超过它才重新调用 AI 鉴定
	RescoreThreshold int
	// NotifyMinScore 推送通知的最低分数线
	NotifyMinScore int
}

// RunStats 一轮扫描的统计汇总，跑完后打给操作者看
type RunStats struct {
	Discovered map[string]int // 各策略产出的候选数 (去重前)
	Unique     map[string]int // 各策略独占贡献数 (去重后)
	Merged     int            // 去重后进入采集的候选总数
	Updated    int            // 重新鉴定并落库
	Refreshed  int            // 只刷新分数，沿用缓存文本
	Skipped    int            // 上游 404 等跳过
	Errored    int            // 采集或落库失败
	Notified   int            // 推送出去的通知数
}

// Pipeline 驱动一轮完整扫描: 发现 → 合并 → 采集 → 评分 → 落库 → 鉴定 → 推送
// 策略串行跑 (共享同一个 API 配额)，候选处理用固定大小的 worker 池并发
type Pipeline struct {
	strategies []port.Strategy
	collector  port.Collector
	enricher   port.Enricher
	notifier   port.Notifier
	store      port.Store
	opts       Options

	nowFunc func() time.Time
}

// NewPipeline 创建扫描管道
func NewPipeline(strategies []port.Strategy, collector port.Collector, enricher port.Enricher,
	notifier port.Notifier, store port.Store, opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		strategies: strategies,
		collector:  collector,
		enricher:   enricher,
		notifier:   notifier,
		store:      store,
		opts:       opts,
		nowFunc:    time.Now,
	}
}

// Run 跑一轮完整扫描，同一天重复跑是安全的 (所有写入按唯一键 upsert)
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	fmt.Printf("🚀 ===== 信号雷达开始扫描 %s =====\n", p.nowFunc().Format("2006-01-02 15:04:05"))

	stats := &RunStats{Discovered: make(map[string]int)}

	// 阶段一: 发现。策略串行执行，单个策略失败只贡献 0 个候选
	var results []strategy.Result
	for _, st := range p.strategies {
		candidates, err := st.Discover(ctx)
		if err != nil {
			fmt.Printf("⚠️ 策略 %s 本轮作废: %v\n", st.Name(), err)
			candidates = nil
		}
		fmt.Printf("🔍 [%s] 产出 %d 个候选\n", st.Name(), len(candidates))
		stats.Discovered[st.Name()] = len(candidates)
		results = append(results, strategy.Result{Strategy: st.Name(), Candidates: candidates})
	}

	// 阶段二: 合并去重，优先级按策略注册顺序
	merged, unique := strategy.Merge(results)
	stats.Unique = unique
	stats.Merged = len(merged)
	fmt.Printf("🧹 合并去重后共 %d 个候选\n", len(merged))

	// 新老面孔统计，纯观测用
	var knownIDs []int64
	for _, c := range merged {
		if c.ID != 0 {
			knownIDs = append(knownIDs, c.ID)
		}
	}
	if len(knownIDs) > 0 {
		if known, err := p.store.ExistingIDs(ctx, knownIDs); err != nil {
			fmt.Printf("⚠️ 批量查询历史仓库失败: %v\n", err)
		} else {
			fmt.Printf("🧭 其中 %d 个是老面孔, %d 个首次见到\n", len(known), len(merged)-len(known))
		}
	}

	// 阶段三: 采集 + 评分 + 落库，worker 池并发
	jobs := make(chan *domain.Candidate)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var snapshots []*domain.Snapshot
	for i := 0; i < p.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				p.process(ctx, c, stats, &mu, &snapshots)
			}
		}()
	}

feed:
	for _, c := range merged {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- c:
		}
	}
	close(jobs)
	wg.Wait()

	// 当日快照收尾一次性批量落库，重复跑同一天是无操作
	if len(snapshots) > 0 {
		if err := p.store.InsertSnapshots(ctx, snapshots); err != nil {
			fmt.Printf("⚠️ 批量写入快照失败: %v\n", err)
		}
	}

	p.printSummary(stats, time.Since(start))
	return stats, ctx.Err()
}

// process 处理单个候选，全程不让一个候选的失败波及别的候选
func (p *Pipeline) process(ctx context.Context, c *domain.Candidate, stats *RunStats,
	mu *sync.Mutex, snapshots *[]*domain.Snapshot) {
	bump := func(counter *int) {
		mu.Lock()
		*counter++
		mu.Unlock()
	}

	repo, metrics, err := p.collector.Collect(ctx, c)
	if err != nil {
		if common.HasCode(err, common.ErrCodeNotFound) {
			// 上游已删除/转私有: 打标记不删行，候选跳过
			if c.ID != 0 {
				if markErr := p.store.MarkGone(ctx, c.ID); markErr != nil {
					fmt.Printf("⚠️ 标记 %s 消失失败: %v\n", c.FullName(), markErr)
				}
			}
			bump(&stats.Skipped)
			return
		}
		fmt.Printf("❌ %s 信号采集失败: %v\n", c.FullName(), err)
		bump(&stats.Errored)
		return
	}

	result := scoring.Score(*metrics)

	// 通知去重标记要在 upsert 之前读，读失败只是可能重发一条通知
	alreadyNotified := false
	if existing, err := p.store.RepoByID(ctx, repo.ID); err != nil {
		fmt.Printf("⚠️ 读取 %s 历史记录失败: %v\n", repo.FullName(), err)
	} else if existing != nil {
		alreadyNotified = existing.AlreadyNotified
	}

	if err := p.store.UpsertRepo(ctx, repo); err != nil {
		fmt.Printf("❌ 保存 %s 失败: %v\n", repo.FullName(), err)
		bump(&stats.Errored)
		return
	}

	today := p.nowFunc().Format("2006-01-02")
	mu.Lock()
	*snapshots = append(*snapshots, &domain.Snapshot{
		RepoID:  repo.ID,
		Date:    today,
		Stars:   repo.Stars,
		Forks:   repo.Forks,
		Stars7d: metrics.Stars7d,
	})
	mu.Unlock()

	// 论坛提及数按天落一份周期计数，重复跑同一天是干净覆盖
	contributions := []*domain.ToolContribution{
		{RepoID: repo.ID, Label: "forum_mentions_7d", Period: today, Count: metrics.Mentions7d},
		{RepoID: repo.ID, Label: "forum_mentions_30d", Period: today, Count: metrics.Mentions30d},
	}
	for _, contribution := range contributions {
		if err := p.store.UpsertContribution(ctx, contribution); err != nil {
			fmt.Printf("⚠️ 写入 %s 提及计数失败: %v\n", repo.FullName(), err)
		}
	}

	cached, err := p.store.Enrichment(ctx, repo.ID)
	if err != nil {
		fmt.Printf("⚠️ 读取 %s 富化缓存失败: %v\n", repo.FullName(), err)
		cached = nil
	}

	var fresh *domain.Enrichment
	stale := needsEnrich(cached, result.Score, p.opts.RescoreThreshold)
	if stale {
		fresh, err = p.enricher.Enrich(ctx, repo, result.Score)
		if err != nil {
			// AI 挂了不挡路: 分数照常落库，文本沿用缓存 (没有就留空)
			fmt.Printf("⚠️ %s AI 鉴定失败，沿用旧文本: %v\n", repo.FullName(), err)
			fresh = nil
		}
	}

	row := buildEnrichment(repo.ID, cached, fresh, result, p.nowFunc())
	if err := p.store.UpsertEnrichment(ctx, row); err != nil {
		fmt.Printf("❌ 保存 %s 富化记录失败: %v\n", repo.FullName(), err)
		bump(&stats.Errored)
		return
	}

	if stale {
		bump(&stats.Updated)
	} else {
		bump(&stats.Refreshed)
	}
	fmt.Printf("✅ %s 评分 %d (来源: %s)\n", repo.FullName(), result.Score, c.Source)

	if p.notifier == nil || result.Score < p.opts.NotifyMinScore || alreadyNotified {
		return
	}
	if err := p.notifier.Notify(ctx, repo, row); err != nil {
		fmt.Printf("⚠️ 推送 %s 通知失败: %v\n", repo.FullName(), err)
		return
	}
	if err := p.store.MarkAsNotified(ctx, repo.ID); err != nil {
		fmt.Printf("⚠️ 标记 %s 已通知失败: %v\n", repo.FullName(), err)
	}
	bump(&stats.Notified)
}

func (p *Pipeline) printSummary(stats *RunStats, elapsed time.Duration) {
	fmt.Printf("\n📊 ===== 本轮扫描结束 (耗时 %v) =====\n", elapsed.Round(time.Second))
	for _, st := range p.strategies {
		fmt.Printf("   🔹 %-10s 产出 %d / 独占 %d\n",
			st.Name(), stats.Discovered[st.Name()], stats.Unique[st.Name()])
	}
	fmt.Printf("   候选 %d | 重新鉴定 %d | 只刷分 %d | 跳过 %d | 失败 %d | 推送 %d\n",
		stats.Merged, stats.Updated, stats.Refreshed, stats.Skipped, stats.Errored, stats.Notified)
}
