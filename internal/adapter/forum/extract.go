package forum

import (
	"fmt"
	"regexp"
	"strings"
)

// RepoRef 从自由文本里抽出来的 owner/name 引用
type RepoRef struct {
	Owner string
	Name  string
}

// Key 去重用的小写键
func (r RepoRef) Key() string {
	return strings.ToLower(fmt.Sprintf("%s/%s", r.Owner, r.Name))
}

// repoLinkPattern 匹配 github.com/owner/name 形式的链接片段
// owner 不允许下划线和点 (GitHub 用户名规则)，name 允许
var repoLinkPattern = regexp.MustCompile(`github\.com/([A-Za-z0-9][A-Za-z0-9-]*)/([A-Za-z0-9_.][A-Za-z0-9_.-]*)`)

// 这些路径段出现在 owner 或 name 的位置时不是仓库引用
// (github.com/features/copilot、github.com/orgs/xxx 之类)
var nonRepoSegments = map[string]bool{
	"issues": true, "pull": true, "pulls": true, "blob": true, "tree": true,
	"wiki": true, "releases": true, "commit": true, "commits": true,
	"compare": true, "actions": true, "discussions": true, "projects": true,
	"topics": true, "orgs": true, "collections": true, "sponsors": true,
	"features": true, "marketplace": true, "apps": true, "settings": true,
	"about": true, "blog": true, "search": true, "trending": true,
	"site": true, "contact": true, "pricing": true, "login": true,
}

// ExtractRepoRefs 在若干段自由文本里扫仓库链接，返回本条命中内去重后的引用
func ExtractRepoRefs(texts ...string) []RepoRef {
	seen := make(map[string]bool)
	var refs []RepoRef

	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, match := range repoLinkPattern.FindAllStringSubmatch(text, -1) {
			owner, name := match[1], match[2]
			// 链接经常带着标点尾巴或 .git 后缀
			name = strings.TrimRight(name, ".")
			name = strings.TrimSuffix(name, ".git")

			if name == "" {
				continue
			}
			if nonRepoSegments[strings.ToLower(owner)] || nonRepoSegments[strings.ToLower(name)] {
				continue
			}

			ref := RepoRef{Owner: owner, Name: name}
			if seen[ref.Key()] {
				continue
			}
			seen[ref.Key()] = true
			refs = append(refs, ref)
		}
	}

	return refs
}
