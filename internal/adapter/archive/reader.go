package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github-signal-radar/internal/common"

	"github.com/klauspost/compress/gzip"
)

// Event 归档里一行事件的最小结构，别的字段一概不解
type Event struct {
	Type string `json:"type"`
	Repo struct {
		ID   int64  `json:"id"`
		Name string `json:"name"` // "owner/name"
	} `json:"repo"`
}

// StarCount 一个仓库在若干小时桶里累计的 star 事件数
type StarCount struct {
	ID    int64
	Name  string
	Count int
}

// Reader 流式消费 gzip 压缩的 NDJSON 事件归档
//
// 整条链路是拉动式的: 网络字节流 → gzip 解压 → 按行切分 → 逐行解码，
// 下游不取数据上游就不往前读，内存恒定在缓冲区大小，和文件大小无关
type Reader struct {
	baseURL string
	client  *http.Client
}

// NewReader 创建归档读取器，baseURL 形如 "https://data.gharchive.org"
func NewReader(baseURL string) *Reader {
	return &Reader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// 单行上限 4MiB，归档里个别事件的 payload 很夸张
const maxLineBytes = 4 * 1024 * 1024

// Each 流式处理一个小时桶 (形如 "2026-08-23-14")，每解出一条事件调一次 fn
// 单行解码失败直接跳过该行；网络失败或非 200 状态只废弃这一个桶
func (r *Reader) Each(ctx context.Context, bucket string, fn func(*Event)) error {
	url := fmt.Sprintf("%s/%s.json.gz", r.baseURL, bucket)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return common.WrapError(common.ErrCodeArchive, "构造归档请求失败", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return common.WrapError(common.ErrCodeArchive, fmt.Sprintf("拉取归档 %s 失败", bucket), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.NewError(common.ErrCodeArchive, fmt.Sprintf("归档 %s 返回 %s", bucket, resp.Status))
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return common.WrapError(common.ErrCodeArchive, fmt.Sprintf("归档 %s 解压失败", bucket), err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return common.WrapError(common.ErrCodeArchive, "归档读取被取消", ctx.Err())
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			// 坏行只丢这一行，不废整个桶
			continue
		}
		fn(&ev)
	}
	if err := scanner.Err(); err != nil {
		return common.WrapError(common.ErrCodeArchive, fmt.Sprintf("归档 %s 读取中断", bucket), err)
	}
	return nil
}

// CountStarEvents 跨多个小时桶聚合每个仓库的 "star added" (WatchEvent) 计数
// 任何一个桶整体失败只记日志跳过，绝不让整个多桶任务失败
func (r *Reader) CountStarEvents(ctx context.Context, buckets []string) map[int64]*StarCount {
	counts := make(map[int64]*StarCount)

	for _, bucket := range buckets {
		err := r.Each(ctx, bucket, func(ev *Event) {
			if ev.Type != "WatchEvent" || ev.Repo.ID == 0 {
				return
			}
			sc, ok := counts[ev.Repo.ID]
			if !ok {
				sc = &StarCount{ID: ev.Repo.ID, Name: ev.Repo.Name}
				counts[ev.Repo.ID] = sc
			}
			sc.Count++
			// 仓库改名时以最后一次出现的名字为准
			if ev.Repo.Name != "" {
				sc.Name = ev.Repo.Name
			}
		})
		if err != nil {
			fmt.Printf("⚠️ [Archive] 跳过小时桶 %s: %v\n", bucket, err)
			continue
		}
	}

	return counts
}

// DayBuckets 返回某一天的全部 24 个小时桶键，形如 "2026-08-23-0" .. "-23"
func DayBuckets(day time.Time) []string {
	buckets := make([]string, 0, 24)
	date := day.Format("2006-01-02")
	for hour := 0; hour < 24; hour++ {
		buckets = append(buckets, fmt.Sprintf("%s-%d", date, hour))
	}
	return buckets
}
