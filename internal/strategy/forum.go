package strategy

import (
	"context"
	"time"

	"github-signal-radar/internal/adapter/forum"
	"github-signal-radar/internal/domain"
)

// linkLister 策略对论坛客户端的最小依赖
type linkLister interface {
	RecentRepoLinks(ctx context.Context, since time.Time) ([]forum.RepoRef, error)
}

// ForumStrategy 论坛链接抽取: 近期帖子/评论里被讨论到的仓库
// 论坛里出现说明有真人在聊，是搜索排行榜之外的独立信号源
type ForumStrategy struct {
	client     linkLister
	windowDays int
	nowFunc    func() time.Time
}

// NewForumStrategy 创建论坛抽取策略，windowDays 是回看的讨论窗口
func NewForumStrategy(client linkLister, windowDays int) *ForumStrategy {
	return &ForumStrategy{
		client:     client,
		windowDays: windowDays,
		nowFunc:    time.Now,
	}
}

func (s *ForumStrategy) Name() string { return "forum" }

// Discover 抽取窗口内的仓库引用
// 论坛只给出 owner/name，数字 ID 和元数据留给采集阶段补全
func (s *ForumStrategy) Discover(ctx context.Context) ([]*domain.Candidate, error) {
	since := s.nowFunc().AddDate(0, 0, -s.windowDays)
	refs, err := s.client.RecentRepoLinks(ctx, since)
	if err != nil {
		return nil, err
	}

	candidates := make([]*domain.Candidate, 0, len(refs))
	for _, ref := range refs {
		candidates = append(candidates, &domain.Candidate{
			Owner:  ref.Owner,
			Name:   ref.Name,
			Source: s.Name(),
		})
	}
	return candidates, nil
}
