// 包 groups 负责加载并提供发布目标分组（groups.yaml），
// 以分组名（如 default/social）组织平台列表，用于批量发布。
package groups

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-publicist/internal/model"
)

// DefaultGroup 为未指定分组名时使用的分组。
const DefaultGroup = "default"

// Groups 表示全部分组：键为分组名，值为平台列表。
type Groups struct {
	Sets map[string][]model.PlatformID `yaml:",inline"`
}

func Load(path string) (*Groups, error) {
	// 从文件加载 YAML 到 Groups.Sets
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open groups %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read groups %s: %w", path, err)
	}
	return Parse(b)
}

// Parse 解析 YAML 内容，平台名统一为小写并去除空白/重复项。
func Parse(b []byte) (*Groups, error) {
	raw := map[string][]string{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal groups: %w", err)
	}
	g := &Groups{Sets: make(map[string][]model.PlatformID, len(raw))}
	for name, list := range raw {
		seen := map[model.PlatformID]bool{}
		ps := make([]model.PlatformID, 0, len(list))
		for _, s := range list {
			p := model.PlatformID(s).Normalize()
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			ps = append(ps, p)
		}
		g.Sets[name] = ps
	}
	return g, nil
}

// Lookup 按名称获取分组（不区分大小写），名称为空时使用 "default"。
// 与主题预设不同，未知分组不回退，避免发布到意料之外的平台。
func (g *Groups) Lookup(name string) ([]model.PlatformID, bool) {
	if g == nil || len(g.Sets) == 0 {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultGroup
	}
	if ps, ok := g.Sets[name]; ok {
		return ps, true
	}
	// 不区分大小写匹配
	lower := strings.ToLower(name)
	for k, v := range g.Sets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return nil, false
}
