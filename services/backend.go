package services

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

// 列表项类型
const (
	EntryTypeFile      = "file"
	EntryTypeDirectory = "directory"
)

// 批量操作单项状态
const (
	OpStatusSuccess = "success"
	OpStatusFailure = "failure"
)

// ListEntry 后端目录列表中的一项
type ListEntry struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"` // file | directory
	MimeType     string     `json:"mimeType,omitempty"`
	Size         int64      `json:"size"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// ListOptions 后端列表过滤条件
type ListOptions struct {
	FileType string // image/document/spreadsheet/pdf/markdown，空或 all 不过滤
	Search   string // 名称子串，大小写不敏感
}

// ListResult 后端单层列表结果
type ListResult struct {
	CurrentPath string
	Items       []ListEntry
}

// StatInfo 单个路径的状态
type StatInfo struct {
	IsDir    bool
	Size     int64
	MimeType string
	ModTime  *time.Time
}

// OpResult 批量操作的单项结果。整批不会原子失败，逐项上报。
type OpResult struct {
	Path    string `json:"path"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ResolvedURL 下载/预览的访问方式：本地直接流式返回，S3 返回跳转地址
type ResolvedURL struct {
	Mode     string // "stream" | "redirect"
	URL      string // redirect 模式的目标地址
	FilePath string // stream 模式的本地绝对路径
	FileName string
	MimeType string
}

const (
	URLModeStream   = "stream"
	URLModeRedirect = "redirect"
)

// StorageBackend 存储后端统一接口：LOCAL 与 S3 各有一个实现。
// 所有路径参数均为归一化后的逻辑路径（'/' 开头）。
type StorageBackend interface {
	Kind() string
	// List 列出 path 直接子项（不递归）
	List(ctx context.Context, path string, opts ListOptions) (*ListResult, error)
	// Stat 查询路径状态；不存在时返回 ErrPathNotFound
	Stat(ctx context.Context, path string) (*StatInfo, error)
	// Write 将内容写入 dir 下名为 name 的文件。调用方负责预先消解重名。
	Write(ctx context.Context, dir, name string, content io.Reader, size int64, mimeType string) error
	// MkDir 在 parent 下创建目录；同名已存在时返回 ErrDestinationExists
	MkDir(ctx context.Context, parent, name string) error
	// Rename 改名/搬移单个节点；目标已存在时返回 ErrDestinationExists（显式改名不静默加别名）
	Rename(ctx context.Context, oldPath, newPath string) error
	// Move / Copy 批量搬移/复制到目标目录，逐项上报，单项失败不中断其余
	Move(ctx context.Context, sourcePaths []string, destinationPath string) []OpResult
	Copy(ctx context.Context, sourcePaths []string, destinationPath string) []OpResult
	// Delete 批量删除，目录递归删除，逐项上报
	Delete(ctx context.Context, paths []string) []OpResult
	// ResolveURL 解析下载（download=true）或预览访问方式
	ResolveURL(ctx context.Context, path string, download bool) (*ResolvedURL, error)
}

// 文件类型过滤分组（按扩展名）
var fileTypeGroups = map[string]map[string]struct{}{
	"image":       setOf("jpg", "jpeg", "png", "gif", "bmp", "svg", "tiff", "webp"),
	"document":    setOf("doc", "docx", "odt"),
	"spreadsheet": setOf("xls", "xlsx", "ods"),
	"pdf":         setOf("pdf"),
	"markdown":    setOf("md"),
}

func setOf(exts ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

// matchFileType 按扩展名判断文件是否属于指定类型分组
func matchFileType(name, fileType string) bool {
	if fileType == "" || fileType == "all" {
		return true
	}
	group, ok := fileTypeGroups[fileType]
	if !ok {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	_, ok = group[ext]
	return ok
}

// matchSearch 名称子串匹配，大小写不敏感
func matchSearch(name, search string) bool {
	s := strings.TrimSpace(search)
	if s == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(s))
}

// mimeByName 按扩展名推断 MIME，推断不出时回退 application/octet-stream
func mimeByName(name string) string {
	m := mime.TypeByExtension(path.Ext(name))
	if m == "" {
		return "application/octet-stream"
	}
	// 去掉 "; charset=utf-8" 等参数
	if idx := strings.Index(m, ";"); idx >= 0 {
		m = strings.TrimSpace(m[:idx])
	}
	return m
}
