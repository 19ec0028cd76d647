package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github-signal-radar/internal/common"
	"github-signal-radar/internal/domain"
)

// Notifier 把新鉴定出的高分仓库推成飞书卡片消息
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// NewNotifier 创建通知器，webhook 为空时推送功能不可用 (只警告不报错)
func NewNotifier(webhook string) *Notifier {
	if webhook == "" {
		log.Println("⚠️ 警告: 飞书 Webhook 为空，推送功能将无法工作！")
	}
	return &Notifier{
		webhookURL: webhook,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify 发送飞书卡片消息 (Schema 2.0)
func (n *Notifier) Notify(ctx context.Context, repo *domain.Repo, enrichment *domain.Enrichment) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeNotification, "Webhook URL 为空")
	}

	title := fmt.Sprintf("🚀 发现高增长仓库: %s (%d分)", repo.FullName(), enrichment.Score)

	mdContent := fmt.Sprintf(`**⭐ Stars:** %d  |  **语言:** %s  |  **分类:** %s
**🏆 信号评分:** %d/100

**📝 项目描述:**
%s

**🤖 AI 简评:**
%s

**📈 为什么值得关注:**
%s
`,
		repo.Stars, repo.Language, enrichment.Category,
		enrichment.Score,
		repo.Description,
		enrichment.Summary,
		enrichment.Rationale)

	payload := map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": "blue",
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements": []map[string]interface{}{
					{
						"tag":       "markdown",
						"content":   mdContent,
						"text_size": "normal",
					},
					{
						"tag": "button",
						"text": map[string]interface{}{
							"tag":     "plain_text",
							"content": "去 GitHub 看看",
						},
						"type": "primary",
						"behaviors": []map[string]interface{}{
							{
								"type":        "open_url",
								"default_url": repo.URL,
							},
						},
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "卡片序列化失败", err)
	}

	// 推送失败重试两次，通知丢了不致命但很烦
	return common.Do(ctx, func() error {
		return n.post(ctx, body)
	},
		common.WithMaxRetries(2),
		common.WithInitialDelay(time.Second),
	)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "构造推送请求失败", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "推送请求失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return common.NewError(common.ErrCodeNotification,
			fmt.Sprintf("飞书返回 %s: %s", resp.Status, string(data)))
	}

	// 飞书 webhook 失败时 HTTP 还是 200，要看业务码
	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Code != 0 {
		return common.NewError(common.ErrCodeNotification,
			fmt.Sprintf("飞书业务错误 code=%d msg=%s", result.Code, result.Msg))
	}
	return nil
}
