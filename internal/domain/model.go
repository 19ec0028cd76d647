package domain

import (
	"fmt"
	"time"
)

// Repo 代表一个被发现的开源仓库
// 由任意一个发现策略首次发现时创建，之后每轮管道都会刷新计数器
type Repo struct {
	// 基础信息 (来自 GitHub，数字 ID 全局唯一，不是自增主键)
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Owner       string `json:"owner" gorm:"uniqueIndex:idx_owner_name"`
	Name        string `json:"name" gorm:"uniqueIndex:idx_owner_name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Language    string `json:"language"`

	// 累积计数器 (每轮管道刷新)
	Stars        int `json:"stars"`
	Forks        int `json:"forks"`
	Contributors int `json:"contributors"`

	// 时间戳
	CreatedAt   time.Time `json:"created_at"`    // 仓库在 GitHub 上的创建时间
	PushedAt    time.Time `json:"pushed_at"`     // 最后一次 push
	FirstSeenAt time.Time `json:"first_seen_at"` // 我们第一次发现它的时间
	UpdatedAt   time.Time `json:"updated_at"`

	// 上游已删除/失联的仓库只做标记，不物理删除
	Gone bool `json:"gone"`

	// 是否已经推送过通知 (防止重复打扰)
	AlreadyNotified bool `json:"already_notified"`
}

// FullName 返回 "owner/name" 形式的仓库全名
func (r *Repo) FullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// Snapshot 每日一行的不可变快照，用于计算周环比
// (repo_id, date) 唯一，重复写入是无操作 (幂等)
type Snapshot struct {
	ID      uint   `json:"-" gorm:"primaryKey"`
	RepoID  int64  `json:"repo_id" gorm:"uniqueIndex:idx_snapshot_repo_date"`
	Date    string `json:"date" gorm:"uniqueIndex:idx_snapshot_repo_date;size:10"` // "2006-01-02"
	Stars   int    `json:"stars"`
	Forks   int    `json:"forks"`
	Stars7d int    `json:"stars_7d"` // 写入时已知的 7 天新增 star 数
}

// ToolContribution 某个周期内重新推导的完整计数 (比如论坛提及数)
// (repo_id, label, period) 唯一，值是整体覆盖 (upsert)，不是累加
type ToolContribution struct {
	ID     uint   `json:"-" gorm:"primaryKey"`
	RepoID int64  `json:"repo_id" gorm:"uniqueIndex:idx_contribution_key"`
	Label  string `json:"label" gorm:"uniqueIndex:idx_contribution_key;size:64"`
	Period string `json:"period" gorm:"uniqueIndex:idx_contribution_key;size:10"` // "2006-01" 或 "2006-01-02"
	Count  int    `json:"count"`
}

// Enrichment 缓存的 AI 富化结果，每个仓库最多一条在线记录 (按 repo_id upsert)
type Enrichment struct {
	RepoID     int64     `json:"repo_id" gorm:"primaryKey;autoIncrement:false"`
	Summary    string    `json:"summary"`
	Rationale  string    `json:"rationale" gorm:"type:text"`
	Category   string    `json:"category"`
	Score      int       `json:"score"`
	Breakdown  string    `json:"breakdown" gorm:"type:text"` // 评分明细的 JSON 文本
	ComputedAt time.Time `json:"computed_at"`
}

// Candidate 管道内部流转的候选仓库，只活在一轮管道里，不落库
// 由发现策略产出，经过 Merger 去重后进入信号收集
type Candidate struct {
	ID          int64     `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	CreatedAt   time.Time `json:"created_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Source      string    `json:"source"` // 产出它的策略名，用于观测
}

// FullName 返回 "owner/name" 形式的仓库全名
func (c *Candidate) FullName() string {
	return fmt.Sprintf("%s/%s", c.Owner, c.Name)
}

// Metrics 信号收集器为一个候选仓库汇总出的固定指标记录
// 评分引擎只认这一个结构，保证同样的输入永远得到同样的分数
type Metrics struct {
	Stars        int `json:"stars"`
	Forks        int `json:"forks"`
	Contributors int `json:"contributors"`
	Stars7d      int `json:"stars_7d"`
	Stars30d     int `json:"stars_30d"`
	Commits30d   int `json:"commits_30d"`
	Mentions7d   int `json:"mentions_7d"`
	Mentions30d  int `json:"mentions_30d"`
}
