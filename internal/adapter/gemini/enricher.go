package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github-signal-radar/internal/common"
	"github-signal-radar/internal/domain"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Enricher 实现了 port.Enricher 接口
// 对管道来说这是个不透明函数: 仓库事实 + 分数 进，{摘要, 理由, 分类} 出
type Enricher struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// 定义一个内部结构体来接收 AI 返回的 JSON
type aiResponse struct {
	Summary   string `json:"summary"`
	Rationale string `json:"rationale"`
	Category  string `json:"category"`
}

// NewEnricher 初始化 Gemini 客户端
func NewEnricher(ctx context.Context, apiKey string) (*Enricher, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "Gemini 客户端初始化失败", err)
	}

	model := client.GenerativeModel("gemini-2.5-flash-lite")
	// 强制要求返回 JSON，降低解析错误的概率
	model.ResponseMIMEType = "application/json"

	return &Enricher{
		client: client,
		model:  model,
	}, nil
}

// Enrich 为一个仓库生成叙述性富化: 一句话摘要、评分理由、分类
// 调用本身没有副作用，重复调用是安全的
func (e *Enricher) Enrich(ctx context.Context, repo *domain.Repo, score int) (*domain.Enrichment, error) {
	prompt := fmt.Sprintf(`
你是一个资深的开源项目分析师。以下仓库被增长信号模型打了 %d 分 (0-100)：

仓库: %s
地址: %s
描述: %s
语言: %s
Stars: %d | Forks: %d | 贡献者: %d

请严格按照 JSON 格式返回，包含以下字段：
1. summary: 一句话中文简评，说清楚它是干什么的。
2. rationale: 两三句话，解释为什么这个增长信号值得(或不值得)关注。
3. category: 一个英文小写分类词，比如 devtools / ai / database / infra / security / other。

请直接返回 JSON，不要包含 Markdown 格式标记。
`, score, repo.FullName(), repo.URL, repo.Description, repo.Language,
		repo.Stars, repo.Forks, repo.Contributors)

	resp, err := e.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "AI 调用失败", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, common.NewError(common.ErrCodeAIProcessing, "AI 返回内容为空")
	}

	part := resp.Candidates[0].Content.Parts[0]
	jsonStr, ok := part.(genai.Text)
	if !ok {
		return nil, common.NewError(common.ErrCodeAIProcessing, "AI 返回格式错误")
	}

	result, err := parseResponse(string(jsonStr))
	if err != nil {
		return nil, err
	}

	return &domain.Enrichment{
		RepoID:     repo.ID,
		Summary:    result.Summary,
		Rationale:  result.Rationale,
		Category:   result.Category,
		ComputedAt: time.Now(),
	}, nil
}

// parseResponse 智能寻找 JSON 的起止位置
// 即使 AI 返回 "```json { ... } \n ```"，也能精准抠出中间的 { ... }
func parseResponse(rawContent string) (*aiResponse, error) {
	start := strings.Index(rawContent, "{")
	end := strings.LastIndex(rawContent, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, common.NewError(common.ErrCodeAIProcessing,
			fmt.Sprintf("无法提取 JSON, AI 原文: %s", rawContent))
	}

	cleanJson := rawContent[start : end+1]

	var res aiResponse
	if err := json.Unmarshal([]byte(cleanJson), &res); err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing,
			fmt.Sprintf("JSON 解析失败, 原文: %s", cleanJson), err)
	}
	if res.Category == "" {
		res.Category = "other"
	}
	return &res, nil
}

// Close 释放底层连接
func (e *Enricher) Close() error {
	return e.client.Close()
}
