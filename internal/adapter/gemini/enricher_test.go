package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-signal-radar/internal/common"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expectErr bool
		verify    func(*testing.T, *aiResponse)
	}{
		{
			name: "干净的 JSON",
			raw:  `{"summary":"一个很快的终端","rationale":"增长真实","category":"devtools"}`,
			verify: func(t *testing.T, res *aiResponse) {
				assert.Equal(t, "一个很快的终端", res.Summary)
				assert.Equal(t, "devtools", res.Category)
			},
		},
		{
			name: "包着 Markdown 代码块",
			raw:  "```json\n{\"summary\":\"s\",\"rationale\":\"r\",\"category\":\"ai\"}\n```",
			verify: func(t *testing.T, res *aiResponse) {
				assert.Equal(t, "ai", res.Category)
			},
		},
		{
			name: "缺分类时兜底为 other",
			raw:  `{"summary":"s","rationale":"r"}`,
			verify: func(t *testing.T, res *aiResponse) {
				assert.Equal(t, "other", res.Category)
			},
		},
		{
			name:      "完全不是 JSON",
			raw:       "对不起，我无法分析这个仓库",
			expectErr: true,
		},
		{
			name:      "花括号里是垃圾",
			raw:       `{not valid json}`,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseResponse(tt.raw)
			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, common.HasCode(err, common.ErrCodeAIProcessing))
				return
			}
			require.NoError(t, err)
			tt.verify(t, res)
		})
	}
}
