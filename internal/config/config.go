package config

import (
	"time"

	"github-signal-radar/internal/common"
)

// Config 进程级配置，启动时一次性加载成不可变结构体
// 所有构造函数只接受这个结构体，不再读环境变量 (两阶段启动)
type Config struct {
	// 凭证 (缺了 GithubToken / DatabaseDSN 整个运行直接中止)
	GithubToken   string `koanf:"github_token"`
	GeminiAPIKey  string `koanf:"gemini_api_key"`
	DatabaseDSN   string `koanf:"database_dsn"`
	FeishuWebhook string `koanf:"feishu_webhook"`

	// 配额治理 (详见 adapter/github/quota.go)
	QuotaFloor        int `koanf:"quota_floor"`         // 剩余配额低于此值就等待重置
	QuotaSafetyMargin int `koanf:"quota_safety_margin"` // 重置时刻之后的安全余量 (秒)
	QuotaCooldownSec  int `koanf:"quota_cooldown_sec"`  // 403 且无头信息时的固定冷却 (秒)

	// 数据源
	ArchiveBaseURL string `koanf:"archive_base_url"` // gzip NDJSON 事件归档
	ForumBaseURL   string `koanf:"forum_base_url"`   // 论坛搜索 API

	// 发现策略参数
	SurgeMinStars    int      `koanf:"surge_min_stars"`    // 24 小时内最少新增 star 数
	CategoryTopK     int      `koanf:"category_top_k"`     // 每个类目保留的 top-K
	CategoryMinStars int      `koanf:"category_min_stars"` // 类目搜索的最低 star 数
	TrackedLangs     []string `koanf:"tracked_langs"`      // 中段速度搜索的语言分区
	RecencyDays      int      `koanf:"recency_days"`       // "最近有 push" 的天数界限
	NewbornDays      int      `koanf:"newborn_days"`       // 新生仓库的创建时间窗口
	ForumWindowDays  int      `koanf:"forum_window_days"`  // 论坛链接抽取的回看窗口

	// 评分 / 富化
	RescoreThreshold int `koanf:"rescore_threshold"` // |旧分-新分| 超过此值才重新富化
	NotifyMinScore   int `koanf:"notify_min_score"`  // 推送通知的最低分数
	Concurrency      int `koanf:"concurrency"`       // 信号收集的候选级并发数
}

// QuotaMargin 返回安全余量的 time.Duration 形式
func (c *Config) QuotaMargin() time.Duration {
	return time.Duration(c.QuotaSafetyMargin) * time.Second
}

// QuotaCooldown 返回固定冷却时间的 time.Duration 形式
func (c *Config) QuotaCooldown() time.Duration {
	return time.Duration(c.QuotaCooldownSec) * time.Second
}

// defaults 返回所有可调参数的默认值，凭证类字段没有默认值
func defaults() *Config {
	return &Config{
		QuotaFloor:        100,
		QuotaSafetyMargin: 5,
		QuotaCooldownSec:  60,
		ArchiveBaseURL:    "https://data.gharchive.org",
		ForumBaseURL:      "https://hn.algolia.com/api/v1",
		SurgeMinStars:     5,
		CategoryTopK:      20,
		CategoryMinStars:  100,
		TrackedLangs:      []string{"Go", "Python", "TypeScript", "Rust"},
		RecencyDays:       14,
		NewbornDays:       30,
		ForumWindowDays:   7,
		RescoreThreshold:  10,
		NotifyMinScore:    70,
		Concurrency:       3,
	}
}

// Validate 校验必填项，缺失凭证属于致命错误 (启动即失败，不做任何工作)
func (c *Config) Validate() error {
	if c.GithubToken == "" {
		return common.NewError(common.ErrCodeConfig, "RADAR_GITHUB_TOKEN 未设置")
	}
	if c.DatabaseDSN == "" {
		return common.NewError(common.ErrCodeConfig, "RADAR_DATABASE_DSN 未设置")
	}
	return nil
}
