package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github-signal-radar/internal/common"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

// Fetcher 包装所有出站 GitHub 调用: 配额检查 → 调用 → 结果分类
// 所有搜索/详情/分页调用都必须经过同一个 Fetcher (共享同一个 QuotaGovernor)
type Fetcher struct {
	client   *github.Client
	quota    *QuotaGovernor
	cooldown time.Duration // 403 且头信息缺失时的固定冷却

	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher 初始化带认证的 GitHub 客户端
// token 为空时匿名访问 (60次/小时，只适合调试)
func NewFetcher(token string, quota *QuotaGovernor, cooldown time.Duration) *Fetcher {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	}

	return &Fetcher{
		client:   client,
		quota:    quota,
		cooldown: cooldown,
		sleep:    sleepCtx,
	}
}

// call 是一次具体的 API 调用，结果由闭包自己捕获，Fetcher 只关心响应和错误
type call func(ctx context.Context) (*github.Response, error)

// do 执行一次调用:
//  1. 按上一次响应的配额信息决定是否先等待
//  2. 发起调用并把响应喂给 QuotaGovernor
//  3. 分类失败: 404 终止性跳过 / 配额 403 冷却后重试一次 / 202 "还在算" /
//     其他非成功状态记日志后作为可跳过错误返回
func (f *Fetcher) do(ctx context.Context, fn call) error {
	if err := f.quota.Wait(ctx); err != nil {
		return common.WrapError(common.ErrCodeQuota, "等待配额重置被打断", err)
	}

	resp, err := fn(ctx)
	f.quota.Observe(resp)
	if err == nil {
		return nil
	}

	classified := f.classify(resp, err)
	if !common.HasCode(classified, common.ErrCodeQuota) {
		return classified
	}

	// 配额类失败: 冷却之后原样重试一次
	wait := f.cooldown
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && !rateErr.Rate.Reset.IsZero() {
		if until := time.Until(rateErr.Rate.Reset.Time); until > 0 {
			wait = until + time.Second
		}
	}
	fmt.Printf("⏳ [Fetcher] 配额耗尽，冷却 %v 后重试一次\n", wait.Round(time.Second))
	if err := f.sleep(ctx, wait); err != nil {
		return common.WrapError(common.ErrCodeQuota, "配额冷却被打断", err)
	}

	resp, err = fn(ctx)
	f.quota.Observe(resp)
	if err == nil {
		return nil
	}
	return f.classify(resp, err)
}

// classify 把 go-github 的错误翻译成我们的错误分类学
func (f *Fetcher) classify(resp *github.Response, err error) error {
	var acceptedErr *github.AcceptedError
	if errors.As(err, &acceptedErr) {
		return common.NewError(common.ErrCodeStillBaking, "统计还在计算中 (HTTP 202)")
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return common.WrapError(common.ErrCodeQuota, "搜索/REST 配额耗尽", err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return common.WrapError(common.ErrCodeQuota, "触发滥用保护", err)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return common.WrapError(common.ErrCodeNotFound, "上游仓库不存在", err)
		case http.StatusForbidden:
			// 403 但 go-github 没识别出 RateLimitError，按配额耗尽处理
			return common.WrapError(common.ErrCodeQuota, "403 且无配额头信息", err)
		}
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return common.WrapError(common.ErrCodeNotFound, "上游仓库不存在", err)
	}

	return common.WrapError(common.ErrCodeGitHubAPI, "GitHub API 调用失败", err)
}

// SearchRepos 执行一条搜索查询，最多翻 pages 页，每页 perPage 条
// 搜索 API 最多只开放前 1000 条结果，调用方的查询要自己切小
func (f *Fetcher) SearchRepos(ctx context.Context, query, sort string, perPage, pages int) ([]*github.Repository, error) {
	var all []*github.Repository

	for page := 1; page <= pages; page++ {
		opts := &github.SearchOptions{
			Sort:  sort,
			Order: "desc",
			ListOptions: github.ListOptions{
				PerPage: perPage,
				Page:    page,
			},
		}

		var result *github.RepositoriesSearchResult
		err := f.do(ctx, func(ctx context.Context) (*github.Response, error) {
			var resp *github.Response
			var apiErr error
			result, resp, apiErr = f.client.Search.Repositories(ctx, query, opts)
			return resp, apiErr
		})
		if err != nil {
			return all, err
		}

		all = append(all, result.Repositories...)
		if len(result.Repositories) < perPage {
			break
		}
	}

	return all, nil
}

// GetRepo 拉取单个仓库详情，404 返回 NOT_FOUND (调用方跳过该候选)
func (f *Fetcher) GetRepo(ctx context.Context, owner, name string) (*github.Repository, error) {
	var repo *github.Repository
	err := f.do(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var apiErr error
		repo, resp, apiErr = f.client.Repositories.Get(ctx, owner, name)
		return resp, apiErr
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// StargazersPage 拉取一页带时间戳的 stargazer 列表，并返回总页数
// (总页数从 Link 头取，第一次调用后固定)
func (f *Fetcher) StargazersPage(ctx context.Context, owner, name string, page, perPage int) ([]*github.Stargazer, int, error) {
	var gazers []*github.Stargazer
	lastPage := 0
	err := f.do(ctx, func(ctx context.Context) (*github.Response, error) {
		opts := &github.ListOptions{Page: page, PerPage: perPage}
		var resp *github.Response
		var apiErr error
		gazers, resp, apiErr = f.client.Activity.ListStargazers(ctx, owner, name, opts)
		if resp != nil {
			lastPage = resp.LastPage
		}
		return resp, apiErr
	})
	if err != nil {
		return nil, 0, err
	}
	return gazers, lastPage, nil
}

// ContributorsPage 拉取一页贡献者列表
func (f *Fetcher) ContributorsPage(ctx context.Context, owner, name string, page, perPage int) ([]*github.Contributor, error) {
	var contributors []*github.Contributor
	err := f.do(ctx, func(ctx context.Context) (*github.Response, error) {
		opts := &github.ListContributorsOptions{
			Anon:        "true",
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		}
		var resp *github.Response
		var apiErr error
		contributors, resp, apiErr = f.client.Repositories.ListContributors(ctx, owner, name, opts)
		return resp, apiErr
	})
	if err != nil {
		return nil, err
	}
	return contributors, nil
}

// CommitActivity 拉取过去一年的逐周提交统计
// 这个 stats 端点冷缓存时返回 202，翻译成 STATS_STILL_COMPUTING，
// 调用方等一小段时间后重试一次，仍失败就降级为 0
func (f *Fetcher) CommitActivity(ctx context.Context, owner, name string) ([]*github.WeeklyCommitActivity, error) {
	var weeks []*github.WeeklyCommitActivity
	err := f.do(ctx, func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var apiErr error
		weeks, resp, apiErr = f.client.Repositories.ListCommitActivity(ctx, owner, name)
		return resp, apiErr
	})
	if err != nil {
		return nil, err
	}
	return weeks, nil
}
