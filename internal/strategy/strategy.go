package strategy

import (
	"context"
	"strings"
	"time"

	"github-signal-radar/internal/domain"

	"github.com/google/go-github/v53/github"
)

// searcher 是策略对 Fetcher 的最小依赖，方便测试注入
type searcher interface {
	SearchRepos(ctx context.Context, query, sort string, perPage, pages int) ([]*github.Repository, error)
}

// fromSearchItem 把搜索结果项转换成管道内部的候选 (DTO 转换)
func fromSearchItem(item *github.Repository, source string) *domain.Candidate {
	owner, name := splitFullName(item.GetFullName())
	if owner == "" || name == "" {
		return nil
	}
	return &domain.Candidate{
		ID:          item.GetID(),
		Owner:       owner,
		Name:        name,
		URL:         item.GetHTMLURL(),
		Description: item.GetDescription(),
		Language:    item.GetLanguage(),
		Stars:       item.GetStargazersCount(),
		Forks:       item.GetForksCount(),
		CreatedAt:   item.GetCreatedAt().Time,
		PushedAt:    item.GetPushedAt().Time,
		Source:      source,
	}
}

func splitFullName(fullName string) (string, string) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// dateOnly GitHub 搜索限定符用的日期格式
func dateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
