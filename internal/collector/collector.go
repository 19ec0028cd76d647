package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github-signal-radar/internal/common"
	"github-signal-radar/internal/domain"

	"github.com/google/go-github/v53/github"
)

// repoFetcher 采集器对 GitHub 适配层的最小依赖
type repoFetcher interface {
	GetRepo(ctx context.Context, owner, name string) (*github.Repository, error)
	StargazersPage(ctx context.Context, owner, name string, page, perPage int) ([]*github.Stargazer, int, error)
	ContributorsPage(ctx context.Context, owner, name string, page, perPage int) ([]*github.Contributor, error)
	CommitActivity(ctx context.Context, owner, name string) ([]*github.WeeklyCommitActivity, error)
}

// mentionCounter 论坛提及计数
type mentionCounter interface {
	MentionCount(ctx context.Context, fullName string, since time.Time) (int, error)
}

// snapshotReader 历史快照读取，算 star 增量的首选路径
type snapshotReader interface {
	SnapshotOn(ctx context.Context, repoID int64, date string) (*domain.Snapshot, error)
}

const (
	// stargazer 回扫的页数上限，超大仓库扫不完也没必要扫完
	maxStarPages = 10
	starPageSize = 100

	// 贡献者计数的翻页上限，超过就按上限截断
	maxContributorPages = 4
	contributorPageSize = 100

	// stats 端点 202 后的重试等待
	statsRetryDelay = 3 * time.Second
)

// Collector 为单个候选仓库并发收集全部增长信号
// 主记录 (GetRepo) 失败整个候选作废；各子指标失败各自降级为 0
type Collector struct {
	fetcher   repoFetcher
	forum     mentionCounter
	snapshots snapshotReader

	nowFunc func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewCollector 创建信号采集器
func NewCollector(fetcher repoFetcher, forum mentionCounter, snapshots snapshotReader) *Collector {
	return &Collector{
		fetcher:   fetcher,
		forum:     forum,
		snapshots: snapshots,
		nowFunc:   time.Now,
		sleep:     sleepCtx,
	}
}

// Collect 补全候选仓库的主记录并采集评分所需的全部指标
//
// 先拉主记录确认仓库还在 (404 原样上抛，调用方跳过)，然后四路子指标
// 并发采集: star 增量 / 贡献者数 / 30 天提交数 / 论坛提及数
func (c *Collector) Collect(ctx context.Context, candidate *domain.Candidate) (*domain.Repo, *domain.Metrics, error) {
	detail, err := c.fetcher.GetRepo(ctx, candidate.Owner, candidate.Name)
	if err != nil {
		return nil, nil, err
	}

	now := c.nowFunc()
	repo := &domain.Repo{
		ID:           detail.GetID(),
		Owner:        detail.GetOwner().GetLogin(),
		Name:         detail.GetName(),
		URL:          detail.GetHTMLURL(),
		Description:  detail.GetDescription(),
		Language:     detail.GetLanguage(),
		Stars:        detail.GetStargazersCount(),
		Forks:        detail.GetForksCount(),
		CreatedAt:    detail.GetCreatedAt().Time,
		PushedAt:     detail.GetPushedAt().Time,
		FirstSeenAt: now,
		UpdatedAt:   now,
	}

	metrics := &domain.Metrics{
		Stars: repo.Stars,
		Forks: repo.Forks,
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		metrics.Stars7d, metrics.Stars30d = c.starDeltas(ctx, repo)
	}()
	go func() {
		defer wg.Done()
		metrics.Contributors = c.countContributors(ctx, repo)
	}()
	go func() {
		defer wg.Done()
		metrics.Commits30d = c.commits30d(ctx, repo)
	}()
	go func() {
		defer wg.Done()
		metrics.Mentions7d, metrics.Mentions30d = c.mentions(ctx, repo)
	}()

	wg.Wait()

	repo.Contributors = metrics.Contributors
	return repo, metrics, nil
}

// starDeltas 计算 7 天 / 30 天 star 增量
// 首选历史快照做差，没有快照 (新仓库) 时回扫带时间戳的 stargazer 列表
func (c *Collector) starDeltas(ctx context.Context, repo *domain.Repo) (int, int) {
	now := c.nowFunc()
	stars7d, ok7 := c.deltaFromSnapshot(ctx, repo, now.AddDate(0, 0, -7))
	stars30d, ok30 := c.deltaFromSnapshot(ctx, repo, now.AddDate(0, 0, -30))
	if ok7 && ok30 {
		return stars7d, stars30d
	}

	scanned7, scanned30 := c.deltasFromStargazers(ctx, repo)
	if !ok7 {
		stars7d = scanned7
	}
	if !ok30 {
		stars30d = scanned30
	}
	return stars7d, stars30d
}

// deltaFromSnapshot 用 N 天前的快照和当前 star 数做差
func (c *Collector) deltaFromSnapshot(ctx context.Context, repo *domain.Repo, day time.Time) (int, bool) {
	snapshot, err := c.snapshots.SnapshotOn(ctx, repo.ID, day.Format("2006-01-02"))
	if err != nil || snapshot == nil {
		return 0, false
	}
	delta := repo.Stars - snapshot.Stars
	if delta < 0 {
		delta = 0
	}
	return delta, true
}

// deltasFromStargazers 从最后一页往回扫带时间戳的 stargazer 列表
// 碰到 30 天以外的 star 或者扫满页数上限就停
func (c *Collector) deltasFromStargazers(ctx context.Context, repo *domain.Repo) (int, int) {
	now := c.nowFunc()
	cutoff7 := now.AddDate(0, 0, -7)
	cutoff30 := now.AddDate(0, 0, -30)

	// 第一页顺便拿总页数
	gazers, lastPage, err := c.fetcher.StargazersPage(ctx, repo.Owner, repo.Name, 1, starPageSize)
	if err != nil {
		fmt.Printf("⚠️ [Collector] %s stargazer 回扫失败: %v\n", repo.FullName(), err)
		return 0, 0
	}

	count7, count30 := 0, 0
	tally := func(page []*github.Stargazer) bool {
		for _, g := range page {
			starredAt := g.GetStarredAt().Time
			if starredAt.Before(cutoff30) {
				continue
			}
			count30++
			if !starredAt.Before(cutoff7) {
				count7++
			}
		}
		// 整页都在 30 天以外就不用再往前翻了
		return len(page) > 0 && !page[0].GetStarredAt().Time.Before(cutoff30)
	}

	if lastPage <= 1 {
		tally(gazers)
		return count7, count30
	}

	scanned := 0
	for page := lastPage; page >= 1 && scanned < maxStarPages; page-- {
		gazers, _, err := c.fetcher.StargazersPage(ctx, repo.Owner, repo.Name, page, starPageSize)
		if err != nil {
			fmt.Printf("⚠️ [Collector] %s stargazer 第 %d 页失败: %v\n", repo.FullName(), page, err)
			break
		}
		scanned++
		if !tally(gazers) {
			break
		}
	}
	return count7, count30
}

// countContributors 翻页统计贡献者数，超过页数上限按上限截断
func (c *Collector) countContributors(ctx context.Context, repo *domain.Repo) int {
	total := 0
	for page := 1; page <= maxContributorPages; page++ {
		contributors, err := c.fetcher.ContributorsPage(ctx, repo.Owner, repo.Name, page, contributorPageSize)
		if err != nil {
			fmt.Printf("⚠️ [Collector] %s 贡献者统计失败: %v\n", repo.FullName(), err)
			return total
		}
		total += len(contributors)
		if len(contributors) < contributorPageSize {
			break
		}
	}
	return total
}

// commits30d 从逐周提交统计里汇总最近 30 天的提交数
// stats 端点冷缓存返回 202 时等一下重试一次，还不行就降级为 0
func (c *Collector) commits30d(ctx context.Context, repo *domain.Repo) int {
	weeks, err := c.fetcher.CommitActivity(ctx, repo.Owner, repo.Name)
	if common.HasCode(err, common.ErrCodeStillBaking) {
		if sleepErr := c.sleep(ctx, statsRetryDelay); sleepErr != nil {
			return 0
		}
		weeks, err = c.fetcher.CommitActivity(ctx, repo.Owner, repo.Name)
	}
	if err != nil {
		fmt.Printf("⚠️ [Collector] %s 提交统计失败: %v\n", repo.FullName(), err)
		return 0
	}

	cutoff := c.nowFunc().AddDate(0, 0, -30)
	total := 0
	for _, week := range weeks {
		if week.GetWeek().Time.Before(cutoff) {
			continue
		}
		total += week.GetTotal()
	}
	return total
}

// mentions 统计论坛 7 天 / 30 天的提及数
func (c *Collector) mentions(ctx context.Context, repo *domain.Repo) (int, int) {
	now := c.nowFunc()
	fullName := repo.FullName()

	m7, err := c.forum.MentionCount(ctx, fullName, now.AddDate(0, 0, -7))
	if err != nil {
		fmt.Printf("⚠️ [Collector] %s 论坛 7 天提及统计失败: %v\n", fullName, err)
		m7 = 0
	}
	m30, err := c.forum.MentionCount(ctx, fullName, now.AddDate(0, 0, -30))
	if err != nil {
		fmt.Printf("⚠️ [Collector] %s 论坛 30 天提及统计失败: %v\n", fullName, err)
		m30 = 0
	}
	if m30 < m7 {
		m30 = m7
	}
	return m7, m30
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
