package github

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v53/github"
	"github.com/stretchr/testify/assert"
)

// fakeSleeper 记录每次请求睡眠的时长，不真的睡
type fakeSleeper struct {
	slept []time.Duration
}

func (s *fakeSleeper) sleep(_ context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

func responseWithRate(remaining int, reset time.Time) *github.Response {
	return &github.Response{
		Response: &http.Response{StatusCode: http.StatusOK},
		Rate: github.Rate{
			Limit:     5000,
			Remaining: remaining,
			Reset:     github.Timestamp{Time: reset},
		},
	}
}

func TestQuotaGovernor_NoObservationNoWait(t *testing.T) {
	sleeper := &fakeSleeper{}
	g := NewQuotaGovernor(100, 5*time.Second)
	g.sleep = sleeper.sleep

	// 首次调用前没有任何观察记录，规格要求不做前置探测
	assert.NoError(t, g.Wait(context.Background()))
	assert.Empty(t, sleeper.slept)
}

func TestQuotaGovernor_WaitsWhenBelowFloor(t *testing.T) {
	sleeper := &fakeSleeper{}
	g := NewQuotaGovernor(100, 5*time.Second)
	g.sleep = sleeper.sleep

	reset := time.Now().Add(30 * time.Second)
	g.Observe(responseWithRate(42, reset))

	assert.NoError(t, g.Wait(context.Background()))
	assert.Len(t, sleeper.slept, 1)
	// 等待 = 到重置时刻的剩余时间 + 5s 余量
	assert.InDelta(t, float64(35*time.Second), float64(sleeper.slept[0]), float64(2*time.Second))

	// 等完之后状态归于未知，下一次不再等待
	assert.NoError(t, g.Wait(context.Background()))
	assert.Len(t, sleeper.slept, 1)
}

func TestQuotaGovernor_NoWaitAboveFloor(t *testing.T) {
	sleeper := &fakeSleeper{}
	g := NewQuotaGovernor(100, 5*time.Second)
	g.sleep = sleeper.sleep

	g.Observe(responseWithRate(4999, time.Now().Add(time.Hour)))

	assert.NoError(t, g.Wait(context.Background()))
	assert.Empty(t, sleeper.slept)

	remaining, _ := g.Snapshot()
	assert.Equal(t, 4999, remaining)
}

func TestQuotaGovernor_ResetAlreadyPassed(t *testing.T) {
	sleeper := &fakeSleeper{}
	g := NewQuotaGovernor(100, time.Second)
	g.sleep = sleeper.sleep

	// 重置时刻已经过去很久，不应该再睡
	g.Observe(responseWithRate(3, time.Now().Add(-time.Hour)))

	assert.NoError(t, g.Wait(context.Background()))
	assert.Empty(t, sleeper.slept)
}

func TestQuotaGovernor_IgnoresEmptyResponses(t *testing.T) {
	g := NewQuotaGovernor(100, time.Second)

	g.Observe(nil)
	g.Observe(&github.Response{Response: &http.Response{StatusCode: http.StatusOK}})

	remaining, _ := g.Snapshot()
	assert.Equal(t, -1, remaining)
}
