package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github-signal-radar/internal/adapter/archive"
	"github-signal-radar/internal/adapter/feishu"
	"github-signal-radar/internal/adapter/forum"
	"github-signal-radar/internal/adapter/gemini"
	"github-signal-radar/internal/adapter/github"
	"github-signal-radar/internal/adapter/repository"
	"github-signal-radar/internal/collector"
	"github-signal-radar/internal/config"
	"github-signal-radar/internal/port"
	"github-signal-radar/internal/service"
	"github-signal-radar/internal/strategy"

	"github.com/robfig/cron/v3"
)

func main() {
	// 1. 命令行参数
	mode := flag.String("mode", "once", "运行模式: once (跑一轮) / interval (定时循环) / cron (cron 表达式调度) / list (查看已入库仓库)")
	interval := flag.Int("interval", 60, "interval 模式的间隔（分钟）")
	cronExpr := flag.String("cron", "0 3 * * *", "cron 模式的调度表达式（默认每天凌晨 3 点）")
	limit := flag.Int("limit", 50, "list 模式每页条数")
	flag.Parse()

	// 2. 两阶段启动: 先把配置一次性加载成不可变结构体，缺凭证直接中止
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 配置加载失败: %v", err)
	}

	// 3. 组装整条管道
	ctx := context.Background()
	pipeline, store, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ 初始化失败: %v", err)
	}
	defer cleanup()

	// 4. 信号处理，优雅关闭
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 5. 按模式分流
	switch *mode {
	case "once":
		runOnce(runCtx, pipeline)
	case "interval":
		runInterval(runCtx, pipeline, time.Duration(*interval)*time.Minute)
	case "cron":
		runCron(runCtx, pipeline, *cronExpr)
	case "list":
		runList(runCtx, store, *limit)
	default:
		fmt.Println("❌ 未知模式，请使用 -mode=once / interval / cron / list")
		os.Exit(2)
	}
}

// buildPipeline 按依赖顺序组装所有组件，返回管道、存储和资源清理函数
func buildPipeline(ctx context.Context, cfg *config.Config) (*service.Pipeline, port.Store, func(), error) {
	store, err := repository.NewPostgresStore(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}

	enricher, err := gemini.NewEnricher(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, nil, err
	}

	// 所有 GitHub 调用共享同一个配额治理器
	quota := github.NewQuotaGovernor(cfg.QuotaFloor, cfg.QuotaMargin())
	fetcher := github.NewFetcher(cfg.GithubToken, quota, cfg.QuotaCooldown())

	archiveReader := archive.NewReader(cfg.ArchiveBaseURL)
	forumClient := forum.NewClient(cfg.ForumBaseURL)
	notifier := feishu.NewNotifier(cfg.FeishuWebhook)
	signals := collector.NewCollector(fetcher, forumClient, store)

	// 策略注册顺序就是合并时的优先级顺序:
	// 搜索类策略带完整元数据排前面，归档和论坛只有 owner/name 排后面
	strategies := []port.Strategy{
		strategy.NewCategoryStrategy(fetcher, cfg.CategoryMinStars, cfg.RecencyDays, cfg.CategoryTopK),
		strategy.NewMidTierStrategy(fetcher, cfg.TrackedLangs, cfg.RecencyDays),
		strategy.NewNewbornStrategy(fetcher, cfg.NewbornDays, cfg.RecencyDays),
		strategy.NewSurgeStrategy(archiveReader, cfg.SurgeMinStars),
		strategy.NewForumStrategy(forumClient, cfg.ForumWindowDays),
	}

	pipeline := service.NewPipeline(strategies, signals, enricher, notifier, store, service.Options{
		Concurrency:      cfg.Concurrency,
		RescoreThreshold: cfg.RescoreThreshold,
		NotifyMinScore:   cfg.NotifyMinScore,
	})

	cleanup := func() {
		if err := enricher.Close(); err != nil {
			log.Printf("⚠️ 关闭 AI 客户端失败: %v", err)
		}
	}
	return pipeline, store, cleanup, nil
}

// runOnce 跑一轮完整扫描
func runOnce(ctx context.Context, pipeline *service.Pipeline) {
	if _, err := pipeline.Run(ctx); err != nil {
		log.Printf("❌ 扫描中断: %v", err)
	}
}

// runList 翻页打印已入库的仓库，方便人工检查
func runList(ctx context.Context, store port.Store, limit int) {
	offset := 0
	for {
		repos, err := store.ListRepos(ctx, offset, limit)
		if err != nil {
			log.Fatalf("❌ 读取数据库失败: %v", err)
		}
		if len(repos) == 0 {
			if offset == 0 {
				fmt.Println("📭 数据库是空的。先跑一轮 -mode=once 吧！")
			}
			return
		}
		for _, r := range repos {
			marker := " "
			if r.Gone {
				marker = "💀"
			}
			fmt.Printf("%s %-40s ⭐%-7d %-12s 首次发现 %s\n",
				marker, r.FullName(), r.Stars, r.Language, r.FirstSeenAt.Format("2006-01-02"))
		}
		offset += len(repos)
		if len(repos) < limit {
			return
		}
	}
}

// runInterval 定时循环模式: 立即跑一轮，之后每隔 interval 再跑
func runInterval(ctx context.Context, pipeline *service.Pipeline, interval time.Duration) {
	fmt.Printf("⏰ 定时执行模式已启动，每 %v 执行一次\n", interval)
	fmt.Println("按下 Ctrl+C 可以优雅停止程序")

	runOnce(ctx, pipeline)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runOnce(ctx, pipeline)
		case <-ctx.Done():
			fmt.Println("\n👋 收到停止信号，正在退出...")
			return
		}
	}
}

// runCron 按 cron 表达式调度，适合每晚固定时间跑
func runCron(ctx context.Context, pipeline *service.Pipeline, expr string) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(expr, func() {
		runOnce(ctx, pipeline)
	})
	if err != nil {
		log.Fatalf("❌ cron 表达式无效 (%s): %v", expr, err)
	}

	fmt.Printf("⏰ cron 调度模式已启动: %s\n", expr)
	fmt.Println("按下 Ctrl+C 可以优雅停止程序")
	scheduler.Start()

	<-ctx.Done()
	fmt.Println("\n👋 收到停止信号，正在退出...")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
}
