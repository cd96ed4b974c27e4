package services

import (
	"fmt"
	"path"
	"strings"
)

// ResolveCollision 为 name 在已有同级名字集合中选一个不冲突的名字。
// 文件取 base(N).ext，目录取 base(N)，N 从 1 递增并跳过已被占用的值。
// 对固定的 existing 集合结果是确定的。
func ResolveCollision(name string, existing map[string]struct{}, isDir bool) string {
	if _, taken := existing[name]; !taken {
		return name
	}
	base := name
	ext := ""
	if !isDir {
		ext = path.Ext(name)
		base = strings.TrimSuffix(name, ext)
		// 隐藏文件（".env"）整体当作主名
		if base == "" {
			base = name
			ext = ""
		}
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", base, n, ext)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}
