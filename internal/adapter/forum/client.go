package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github-signal-radar/internal/common"
)

// Client 论坛搜索 API 客户端 (Algolia 风格的 HN 搜索接口)
// 响应是命中列表，自由文本字段里再扫仓库链接
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient 创建论坛客户端，baseURL 形如 "https://hn.algolia.com/api/v1"
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Hit 一条命中，只保留我们要扫描的自由文本字段
type Hit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	StoryText   string `json:"story_text"`
	CommentText string `json:"comment_text"`
}

type searchResponse struct {
	Hits    []Hit `json:"hits"`
	NbHits  int   `json:"nbHits"`
	Page    int   `json:"page"`
	NbPages int   `json:"nbPages"`
}

// search 发一次带时间下界的查询，返回一页命中
func (c *Client) search(ctx context.Context, query string, since time.Time, page int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "(story,comment)")
	params.Set("numericFilters", fmt.Sprintf("created_at_i>%d", since.Unix()))
	params.Set("hitsPerPage", "100")
	params.Set("page", fmt.Sprintf("%d", page))

	endpoint := fmt.Sprintf("%s/search_by_date?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeForumAPI, "构造论坛请求失败", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeForumAPI, "论坛搜索请求失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, common.NewError(common.ErrCodeForumAPI, fmt.Sprintf("论坛搜索返回 %s", resp.Status))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, common.WrapError(common.ErrCodeForumAPI, "论坛响应解析失败", err)
	}
	return &result, nil
}

// 翻页上限，论坛提及属于弱信号，没必要翻太深
const maxSearchPages = 5

// RecentRepoLinks 搜索时间窗口内包含 github.com 链接的帖子/评论，
// 从 URL 和正文里抽取去重后的 owner/name 引用
func (c *Client) RecentRepoLinks(ctx context.Context, since time.Time) ([]RepoRef, error) {
	seen := make(map[string]bool)
	var refs []RepoRef

	for page := 0; page < maxSearchPages; page++ {
		result, err := c.search(ctx, "github.com", since, page)
		if err != nil {
			return refs, err
		}

		for _, hit := range result.Hits {
			for _, ref := range ExtractRepoRefs(hit.URL, hit.Title, hit.StoryText, hit.CommentText) {
				key := ref.Key()
				if seen[key] {
					continue
				}
				seen[key] = true
				refs = append(refs, ref)
			}
		}

		if page >= result.NbPages-1 {
			break
		}
	}

	return refs, nil
}

// MentionCount 返回时间窗口内精确提及 "owner/name" 的帖子/评论数
func (c *Client) MentionCount(ctx context.Context, fullName string, since time.Time) (int, error) {
	result, err := c.search(ctx, fmt.Sprintf("%q", fullName), since, 0)
	if err != nil {
		return 0, err
	}
	return result.NbHits, nil
}
