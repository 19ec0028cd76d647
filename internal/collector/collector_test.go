package collector

import (
	"context"
	"testing"
	"time"

	"github-signal-radar/internal/common"
	"github-signal-radar/internal/domain"

	"github.com/google/go-github/v53/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) GetRepo(ctx context.Context, owner, name string) (*github.Repository, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Repository), args.Error(1)
}

func (m *mockFetcher) StargazersPage(ctx context.Context, owner, name string, page, perPage int) ([]*github.Stargazer, int, error) {
	args := m.Called(ctx, owner, name, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*github.Stargazer), args.Int(1), args.Error(2)
}

func (m *mockFetcher) ContributorsPage(ctx context.Context, owner, name string, page, perPage int) ([]*github.Contributor, error) {
	args := m.Called(ctx, owner, name, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*github.Contributor), args.Error(1)
}

func (m *mockFetcher) CommitActivity(ctx context.Context, owner, name string) ([]*github.WeeklyCommitActivity, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*github.WeeklyCommitActivity), args.Error(1)
}

type mockForum struct {
	mock.Mock
}

func (m *mockForum) MentionCount(ctx context.Context, fullName string, since time.Time) (int, error) {
	args := m.Called(ctx, fullName, since)
	return args.Int(0), args.Error(1)
}

type mockSnapshots struct {
	mock.Mock
}

func (m *mockSnapshots) SnapshotOn(ctx context.Context, repoID int64, date string) (*domain.Snapshot, error) {
	args := m.Called(ctx, repoID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

// --- Fixtures ---

func fixedNow() time.Time {
	return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
}

func repoDetail(stars int) *github.Repository {
	return &github.Repository{
		ID:              github.Int64(42),
		Owner:           &github.User{Login: github.String("acme")},
		Name:            github.String("rocket"),
		HTMLURL:         github.String("https://github.com/acme/rocket"),
		Description:     github.String("fast rocket"),
		Language:        github.String("Go"),
		StargazersCount: github.Int(stars),
		ForksCount:      github.Int(120),
		CreatedAt:       &github.Timestamp{Time: fixedNow().AddDate(0, -6, 0)},
		PushedAt:        &github.Timestamp{Time: fixedNow().AddDate(0, 0, -1)},
	}
}

func newTestCollector(f *mockFetcher, forum *mockForum, snaps *mockSnapshots) *Collector {
	c := NewCollector(f, forum, snaps)
	c.nowFunc = fixedNow
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func contributorPage(n int) []*github.Contributor {
	page := make([]*github.Contributor, n)
	for i := range page {
		page[i] = &github.Contributor{Contributions: github.Int(1)}
	}
	return page
}

var candidate = &domain.Candidate{ID: 42, Owner: "acme", Name: "rocket", Source: "newborn"}

// --- Tests ---

func TestCollector_SnapshotPath(t *testing.T) {
	fetcher := new(mockFetcher)
	forum := new(mockForum)
	snaps := new(mockSnapshots)
	c := newTestCollector(fetcher, forum, snaps)

	fetcher.On("GetRepo", mock.Anything, "acme", "rocket").Return(repoDetail(1000), nil)
	// 7 天前和 30 天前都有快照，直接做差
	snaps.On("SnapshotOn", mock.Anything, int64(42), "2026-08-17").
		Return(&domain.Snapshot{RepoID: 42, Stars: 700}, nil)
	snaps.On("SnapshotOn", mock.Anything, int64(42), "2026-07-25").
		Return(&domain.Snapshot{RepoID: 42, Stars: 400}, nil)
	fetcher.On("ContributorsPage", mock.Anything, "acme", "rocket", 1, contributorPageSize).
		Return(contributorPage(25), nil)
	fetcher.On("CommitActivity", mock.Anything, "acme", "rocket").
		Return([]*github.WeeklyCommitActivity{
			{Week: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -40)}, Total: github.Int(99)}, // 窗口外
			{Week: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -20)}, Total: github.Int(30)},
			{Week: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -6)}, Total: github.Int(12)},
		}, nil)
	forum.On("MentionCount", mock.Anything, "acme/rocket", fixedNow().AddDate(0, 0, -7)).Return(4, nil)
	forum.On("MentionCount", mock.Anything, "acme/rocket", fixedNow().AddDate(0, 0, -30)).Return(11, nil)

	repo, metrics, err := c.Collect(context.Background(), candidate)

	require.NoError(t, err)
	assert.Equal(t, int64(42), repo.ID)
	assert.Equal(t, 25, repo.Contributors)
	assert.Equal(t, 300, metrics.Stars7d)
	assert.Equal(t, 600, metrics.Stars30d)
	assert.Equal(t, 42, metrics.Commits30d)
	assert.Equal(t, 4, metrics.Mentions7d)
	assert.Equal(t, 11, metrics.Mentions30d)
	// 快照路径命中时不应该去扫 stargazer 列表
	fetcher.AssertNotCalled(t, "StargazersPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCollector_NotFoundPropagates(t *testing.T) {
	fetcher := new(mockFetcher)
	c := newTestCollector(fetcher, new(mockForum), new(mockSnapshots))

	fetcher.On("GetRepo", mock.Anything, "acme", "gone").
		Return(nil, common.NewError(common.ErrCodeNotFound, "上游仓库不存在"))

	_, _, err := c.Collect(context.Background(), &domain.Candidate{Owner: "acme", Name: "gone"})

	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.ErrCodeNotFound))
}

func TestCollector_StargazerFallback(t *testing.T) {
	fetcher := new(mockFetcher)
	forum := new(mockForum)
	snaps := new(mockSnapshots)
	c := newTestCollector(fetcher, forum, snaps)

	fetcher.On("GetRepo", mock.Anything, "acme", "rocket").Return(repoDetail(60), nil)
	// 没有任何历史快照 (新仓库第一次被发现)
	snaps.On("SnapshotOn", mock.Anything, int64(42), mock.Anything).Return(nil, nil)

	// 单页仓库: 3 个 star 在 7 天内，再加 2 个在 7~30 天之间，1 个在窗口外
	gazers := []*github.Stargazer{
		{StarredAt: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -45)}},
		{StarredAt: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -20)}},
		{StarredAt: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -10)}},
		{StarredAt: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -3)}},
		{StarredAt: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -2)}},
		{StarredAt: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -1)}},
	}
	fetcher.On("StargazersPage", mock.Anything, "acme", "rocket", 1, starPageSize).
		Return(gazers, 0, nil)
	fetcher.On("ContributorsPage", mock.Anything, "acme", "rocket", 1, contributorPageSize).
		Return(contributorPage(3), nil)
	fetcher.On("CommitActivity", mock.Anything, "acme", "rocket").
		Return([]*github.WeeklyCommitActivity{}, nil)
	forum.On("MentionCount", mock.Anything, "acme/rocket", mock.Anything).Return(0, nil)

	_, metrics, err := c.Collect(context.Background(), candidate)

	require.NoError(t, err)
	assert.Equal(t, 3, metrics.Stars7d)
	assert.Equal(t, 5, metrics.Stars30d)
}

func TestCollector_StatsRetryAfter202(t *testing.T) {
	fetcher := new(mockFetcher)
	forum := new(mockForum)
	snaps := new(mockSnapshots)
	c := newTestCollector(fetcher, forum, snaps)

	fetcher.On("GetRepo", mock.Anything, "acme", "rocket").Return(repoDetail(100), nil)
	snaps.On("SnapshotOn", mock.Anything, int64(42), mock.Anything).
		Return(&domain.Snapshot{RepoID: 42, Stars: 90}, nil)
	fetcher.On("ContributorsPage", mock.Anything, "acme", "rocket", 1, contributorPageSize).
		Return(contributorPage(2), nil)
	// 第一次 202 还在算，重试一次成功
	fetcher.On("CommitActivity", mock.Anything, "acme", "rocket").
		Return(nil, common.NewError(common.ErrCodeStillBaking, "统计还在计算中")).Once()
	fetcher.On("CommitActivity", mock.Anything, "acme", "rocket").
		Return([]*github.WeeklyCommitActivity{
			{Week: &github.Timestamp{Time: fixedNow().AddDate(0, 0, -5)}, Total: github.Int(7)},
		}, nil).Once()
	forum.On("MentionCount", mock.Anything, "acme/rocket", mock.Anything).Return(0, nil)

	_, metrics, err := c.Collect(context.Background(), candidate)

	require.NoError(t, err)
	assert.Equal(t, 7, metrics.Commits30d)
	fetcher.AssertExpectations(t)
}

func TestCollector_SubMetricFailuresDegradeToZero(t *testing.T) {
	fetcher := new(mockFetcher)
	forum := new(mockForum)
	snaps := new(mockSnapshots)
	c := newTestCollector(fetcher, forum, snaps)

	fetcher.On("GetRepo", mock.Anything, "acme", "rocket").Return(repoDetail(100), nil)
	snaps.On("SnapshotOn", mock.Anything, int64(42), mock.Anything).Return(nil, nil)
	fetcher.On("StargazersPage", mock.Anything, "acme", "rocket", 1, starPageSize).
		Return(nil, 0, common.NewError(common.ErrCodeGitHubAPI, "boom"))
	fetcher.On("ContributorsPage", mock.Anything, "acme", "rocket", 1, contributorPageSize).
		Return(nil, common.NewError(common.ErrCodeGitHubAPI, "boom"))
	fetcher.On("CommitActivity", mock.Anything, "acme", "rocket").
		Return(nil, common.NewError(common.ErrCodeGitHubAPI, "boom"))
	forum.On("MentionCount", mock.Anything, "acme/rocket", mock.Anything).
		Return(0, common.NewError(common.ErrCodeForumAPI, "boom"))

	repo, metrics, err := c.Collect(context.Background(), candidate)

	require.NoError(t, err)
	assert.Equal(t, 100, metrics.Stars)
	assert.Zero(t, metrics.Stars7d)
	assert.Zero(t, metrics.Stars30d)
	assert.Zero(t, metrics.Contributors)
	assert.Zero(t, metrics.Commits30d)
	assert.Zero(t, metrics.Mentions7d)
	assert.Zero(t, repo.Contributors)
}

func TestCollector_ContributorsMultiPage(t *testing.T) {
	fetcher := new(mockFetcher)
	forum := new(mockForum)
	snaps := new(mockSnapshots)
	c := newTestCollector(fetcher, forum, snaps)

	fetcher.On("GetRepo", mock.Anything, "acme", "rocket").Return(repoDetail(100), nil)
	snaps.On("SnapshotOn", mock.Anything, int64(42), mock.Anything).
		Return(&domain.Snapshot{RepoID: 42, Stars: 90}, nil)
	// 两整页 + 一个短页
	fetcher.On("ContributorsPage", mock.Anything, "acme", "rocket", 1, contributorPageSize).
		Return(contributorPage(contributorPageSize), nil)
	fetcher.On("ContributorsPage", mock.Anything, "acme", "rocket", 2, contributorPageSize).
		Return(contributorPage(contributorPageSize), nil)
	fetcher.On("ContributorsPage", mock.Anything, "acme", "rocket", 3, contributorPageSize).
		Return(contributorPage(17), nil)
	fetcher.On("CommitActivity", mock.Anything, "acme", "rocket").
		Return([]*github.WeeklyCommitActivity{}, nil)
	forum.On("MentionCount", mock.Anything, "acme/rocket", mock.Anything).Return(0, nil)

	repo, _, err := c.Collect(context.Background(), candidate)

	require.NoError(t, err)
	assert.Equal(t, 217, repo.Contributors)
}
