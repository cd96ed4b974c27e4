package services

import (
	"fmt"
	"path"
	"strings"
)

// NormalizePath 将用户输入的逻辑路径归一化：
//   - 以 '/' 开头，压缩连续的 '/'，去掉尾部 '/'（根目录除外）
//   - 拒绝 ".." 越权段
//
// 纯函数，不触碰任何后端。
func NormalizePath(p string) (string, error) {
	s := strings.TrimSpace(p)
	if s == "" {
		return "/", nil
	}
	s = strings.ReplaceAll(s, "\\", "/")
	if strings.ContainsRune(s, '\x00') {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	s = path.Clean(s)
	if s == "." {
		s = "/"
	}
	return s, nil
}

// SplitPath 拆出父目录与基名。"/docs/a.txt" -> ("/docs", "a.txt")，"/a" -> ("/", "a")。
func SplitPath(p string) (parent, name string) {
	if p == "/" || p == "" {
		return "/", ""
	}
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/", strings.TrimPrefix(p, "/")
	}
	return p[:idx], p[idx+1:]
}

// JoinPath 在目录下拼接子项，保持无尾部 '/'。
func JoinPath(dir, name string) string {
	if dir == "/" || dir == "" {
		return "/" + name
	}
	return dir + "/" + name
}

// DirKey 目录键：根目录记为 ""，其余与归一化路径相同。
// file_records.directory 用这个形式存储。
func DirKey(p string) string {
	if p == "/" {
		return ""
	}
	return p
}

// SanitizeName 取基名并去掉首尾空白，防止上传文件名携带路径。
func SanitizeName(name string) string {
	n := strings.TrimSpace(name)
	n = strings.ReplaceAll(n, "\\", "/")
	if idx := strings.LastIndex(n, "/"); idx >= 0 {
		n = n[idx+1:]
	}
	if n == "." || n == ".." {
		return ""
	}
	return n
}
