package github

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-github/v53/github"
)

// QuotaGovernor 进程内唯一的配额守门人
// GitHub 的搜索/REST 配额是账号级的单一预算，所有调用方必须共享同一个实例，
// 否则两个调用点会重复花掉同一个窗口的配额
//
// 它不做任何预检请求: 只观察"上一次响应"带回来的
// X-RateLimit-Remaining / X-RateLimit-Reset，剩余量跌破下限时，
// 下一次调用前睡到重置时刻 + 安全余量
type QuotaGovernor struct {
	mu        sync.Mutex
	remaining int       // 上次响应报告的剩余配额，-1 表示还没观察到
	reset     time.Time // 上次响应报告的重置时刻
	floor     int
	margin    time.Duration

	// sleep 可注入，测试里换成假睡眠
	sleep func(ctx context.Context, d time.Duration) error
}

// NewQuotaGovernor 创建配额守门人
// floor: 剩余配额低于此值就开始等待 (默认 100)
// margin: 重置时刻之后再多等的安全余量 (默认 5s)
func NewQuotaGovernor(floor int, margin time.Duration) *QuotaGovernor {
	return &QuotaGovernor{
		remaining: -1,
		floor:     floor,
		margin:    margin,
		sleep:     sleepCtx,
	}
}

// Observe 记录一次响应带回的配额信息，go-github 已经替我们解析了响应头
func (g *QuotaGovernor) Observe(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remaining = resp.Rate.Remaining
	g.reset = resp.Rate.Reset.Time
}

// Wait 在上一次观察到的剩余配额跌破下限时阻塞到重置时刻 + 余量
// 没有观察记录 (首次调用) 不等待: 规格要求不做前置配额探测
func (g *QuotaGovernor) Wait(ctx context.Context) error {
	g.mu.Lock()
	if g.remaining < 0 || g.remaining >= g.floor {
		g.mu.Unlock()
		return nil
	}
	wait := time.Until(g.reset) + g.margin
	// 等完之后视为未知状态，下一次响应会重新校准
	g.remaining = -1
	g.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	fmt.Printf("⏳ [Quota] 剩余配额不足，等待 %v 到重置时刻\n", wait.Round(time.Second))
	return g.sleep(ctx, wait)
}

// Snapshot 返回当前观察到的 (剩余, 重置时刻)，给日志和测试用
func (g *QuotaGovernor) Snapshot() (int, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining, g.reset
}

// sleepCtx 可被 context 打断的睡眠
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
