package repository

import (
	"context"
	"errors"

	"github-signal-radar/internal/common"
	"github-signal-radar/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 批量约定: 查询按 500 个键一批 (IN 子句别太长)，写入按 100 行一批
const (
	lookupBatchSize = 500
	writeBatchSize  = 100
)

// PostgresStore 实现了 port.Store 接口
// 所有写入都按唯一键 upsert，同一天重复跑管道是安全的无操作或干净覆盖
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore 初始化数据库连接并自动迁移表结构
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接数据库失败", err)
	}

	// AutoMigrate 自动建表，字段变了也会自动跟上
	err = db.AutoMigrate(
		&domain.Repo{},
		&domain.Snapshot{},
		&domain.ToolContribution{},
		&domain.Enrichment{},
	)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "数据库迁移失败", err)
	}

	return &PostgresStore{db: db}, nil
}

// UpsertRepo 按 ID 插入或更新计数器，首次发现时间只写一次不覆盖
func (s *PostgresStore) UpsertRepo(ctx context.Context, repo *domain.Repo) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner", "name", "url", "description", "language",
			"stars", "forks", "contributors", "pushed_at", "updated_at", "gone",
		}),
	}).Create(repo)
	if result.Error != nil {
		return common.WrapError(common.ErrCodeDatabase, "保存仓库失败", result.Error)
	}
	return nil
}

// ExistingIDs 分批查询哪些仓库 ID 已经入库
func (s *PostgresStore) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	existing := make(map[int64]bool, len(ids))

	for start := 0; start < len(ids); start += lookupBatchSize {
		end := start + lookupBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		var found []int64
		err := s.db.WithContext(ctx).
			Model(&domain.Repo{}).
			Where("id IN ?", ids[start:end]).
			Pluck("id", &found).Error
		if err != nil {
			return nil, common.WrapError(common.ErrCodeDatabase, "批量查询仓库失败", err)
		}
		for _, id := range found {
			existing[id] = true
		}
	}

	return existing, nil
}

// RepoByID 读单个仓库记录，没有返回 nil (不算错误)
func (s *PostgresStore) RepoByID(ctx context.Context, id int64) (*domain.Repo, error) {
	var repo domain.Repo
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&repo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "读取仓库失败", err)
	}
	return &repo, nil
}

// MarkGone 上游报告仓库已消失，打标记不删行
func (s *PostgresStore) MarkGone(ctx context.Context, repoID int64) error {
	result := s.db.WithContext(ctx).
		Model(&domain.Repo{}).
		Where("id = ?", repoID).
		Update("gone", true)
	if result.Error != nil {
		return common.WrapError(common.ErrCodeDatabase, "标记仓库消失失败", result.Error)
	}
	return nil
}

// InsertSnapshots 批量写快照，每批 100 行，(repo_id, date) 冲突时什么都不做 (幂等)
func (s *PostgresStore) InsertSnapshots(ctx context.Context, snapshots []*domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(snapshots, writeBatchSize)
	if result.Error != nil {
		return common.WrapError(common.ErrCodeDatabase, "批量写入快照失败", result.Error)
	}
	return nil
}

// SnapshotOn 读某仓库某天的快照，没有返回 nil (不算错误)
func (s *PostgresStore) SnapshotOn(ctx context.Context, repoID int64, date string) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := s.db.WithContext(ctx).
		Where("repo_id = ? AND date = ?", repoID, date).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "读取快照失败", err)
	}
	return &snapshot, nil
}

// UpsertContribution 按 (repo_id, label, period) 整体覆盖计数
// 每次计算都是重新推导该周期的完整计数，所以是覆盖不是累加
func (s *PostgresStore) UpsertContribution(ctx context.Context, c *domain.ToolContribution) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo_id"}, {Name: "label"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"count"}),
	}).Create(c)
	if result.Error != nil {
		return common.WrapError(common.ErrCodeDatabase, "写入贡献计数失败", result.Error)
	}
	return nil
}

// Enrichment 读缓存的富化记录，没有返回 nil
func (s *PostgresStore) Enrichment(ctx context.Context, repoID int64) (*domain.Enrichment, error) {
	var e domain.Enrichment
	err := s.db.WithContext(ctx).
		Where("repo_id = ?", repoID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "读取富化记录失败", err)
	}
	return &e, nil
}

// UpsertEnrichment 按 repo_id 覆盖富化记录，每个仓库最多一条在线记录
func (s *PostgresStore) UpsertEnrichment(ctx context.Context, e *domain.Enrichment) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "repo_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "rationale", "category", "score", "breakdown", "computed_at",
		}),
	}).Create(e)
	if result.Error != nil {
		return common.WrapError(common.ErrCodeDatabase, "写入富化记录失败", result.Error)
	}
	return nil
}

// MarkAsNotified 标记仓库已推送过通知
func (s *PostgresStore) MarkAsNotified(ctx context.Context, repoID int64) error {
	result := s.db.WithContext(ctx).
		Model(&domain.Repo{}).
		Where("id = ?", repoID).
		Update("already_notified", true)
	if result.Error != nil {
		return common.WrapError(common.ErrCodeDatabase, "标记已通知失败", result.Error)
	}
	return nil
}

// ListRepos 范围分页全表扫描，按 ID 排序保证翻页稳定
func (s *PostgresStore) ListRepos(ctx context.Context, offset, limit int) ([]*domain.Repo, error) {
	var repos []*domain.Repo
	err := s.db.WithContext(ctx).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&repos).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "分页读取仓库失败", err)
	}
	return repos, nil
}
