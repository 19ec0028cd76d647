package port

import (
	"context"

	"github-signal-radar/internal/domain"
)

// Strategy (侦察兵): 一个独立的发现策略，从单一数据源产出候选仓库
// 策略永远不直接写存储，失败时整个策略贡献 0 个候选，不影响别的策略
type Strategy interface {
	// Name 策略名，用于合并时的归属统计和日志
	Name() string

	// Discover 跑一轮发现，返回这轮找到的候选集合
	Discover(ctx context.Context) ([]*domain.Candidate, error)
}

// Collector (信号收集员): 为一个去重后的候选仓库并发收集全部增长信号
// 单个子指标失败降级为 0，不拖垮整个候选
type Collector interface {
	// Collect 返回补全后的仓库实体和评分用的指标记录
	// 上游 404 时返回 NOT_FOUND 错误，调用方跳过该候选
	Collect(ctx context.Context, c *domain.Candidate) (*domain.Repo, *domain.Metrics, error)
}

// Enricher (鉴定师): 调用 LLM 生成摘要/理由/分类
// 对我们来说是不透明函数: 仓库事实 + 分数 进，叙述文本 出
type Enricher interface {
	// Enrich 只填充 Summary / Rationale / Category 三个叙述字段
	Enrich(ctx context.Context, repo *domain.Repo, score int) (*domain.Enrichment, error)
}

// Notifier (信使): 把新鉴定出的高分仓库推送出去
type Notifier interface {
	Notify(ctx context.Context, repo *domain.Repo, enrichment *domain.Enrichment) error
}

// Store (仓库管理员): 持久化边界，全部按唯一键 upsert，重复跑同一天是安全的
type Store interface {
	// UpsertRepo 按仓库 ID 插入或更新，保留首次发现时间
	UpsertRepo(ctx context.Context, repo *domain.Repo) error

	// RepoByID 读单个仓库记录，没有则返回 nil
	RepoByID(ctx context.Context, id int64) (*domain.Repo, error)

	// ExistingIDs 批量查询哪些 ID 已经入库 (分批 IN 查询)
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error)

	// MarkGone 上游报告仓库已消失时打标记，不物理删除
	MarkGone(ctx context.Context, repoID int64) error

	// InsertSnapshots 批量写快照，(repo_id, date) 已存在的行是无操作
	InsertSnapshots(ctx context.Context, snapshots []*domain.Snapshot) error

	// SnapshotOn 读某仓库某天的快照，没有则返回 nil
	SnapshotOn(ctx context.Context, repoID int64, date string) (*domain.Snapshot, error)

	// UpsertContribution 按 (repo_id, label, period) 整体覆盖计数
	UpsertContribution(ctx context.Context, c *domain.ToolContribution) error

	// Enrichment 读缓存的富化记录，没有则返回 nil
	Enrichment(ctx context.Context, repoID int64) (*domain.Enrichment, error)

	// UpsertEnrichment 按 repo_id 覆盖富化记录
	UpsertEnrichment(ctx context.Context, e *domain.Enrichment) error

	// MarkAsNotified 标记仓库已推送过通知
	MarkAsNotified(ctx context.Context, repoID int64) error

	// ListRepos 范围分页全表扫描，给调试/导出用
	ListRepos(ctx context.Context, offset, limit int) ([]*domain.Repo, error)
}
