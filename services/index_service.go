package services

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"filehub-manager/models"
)

// IndexService 目录索引：fs_nodes 表是后端列表的数据库镜像，
// 列表查询走这里而不是每次扫存储。后端操作成功才是事实，
// 索引写入永远发生在后端变更成功之后。
type IndexService struct {
	db *gorm.DB
}

func NewIndexService(db *gorm.DB) *IndexService {
	return &IndexService{db: db}
}

// ----------------------------
// 节点维护
// ----------------------------

// GetNode 按 (storage_id, path) 取未删除节点，不存在时返回 gorm.ErrRecordNotFound
func (s *IndexService) GetNode(storageID uint, path string) (*models.FsNode, error) {
	var node models.FsNode
	err := s.db.Where("storage_id = ? AND path = ?", storageID, path).First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// EnsureDir 落库目录节点，并补齐缺失的祖先目录（根目录不入库）
func (s *IndexService) EnsureDir(storageID uint, path string) error {
	if path == "/" || path == "" {
		return nil
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	current := ""
	for _, seg := range segments {
		current += "/" + seg
		if _, err := s.GetNode(storageID, current); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		node := models.FsNode{StorageID: storageID, Path: current, Name: seg, IsDir: true}
		if err := s.db.Create(&node).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpsertFile 文件节点插入或更新 size/mime，父目录链一并补齐
func (s *IndexService) UpsertFile(storageID uint, path string, size int64, mimeType string) error {
	parent, name := SplitPath(path)
	if err := s.EnsureDir(storageID, parent); err != nil {
		return err
	}
	node, err := s.GetNode(storageID, path)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.FsNode{
			StorageID: storageID, Path: path, Name: name,
			IsDir: false, SizeBytes: size, MimeType: mimeType,
		}).Error
	}
	if err != nil {
		return err
	}
	node.SizeBytes = size
	node.MimeType = mimeType
	node.IsDir = false
	return s.db.Save(node).Error
}

// RenameSubtree 单节点改名/搬移，目录则对整个子树做前缀替换
func (s *IndexService) RenameSubtree(storageID uint, oldPath, newPath string) error {
	dstParent, _ := SplitPath(newPath)
	if err := s.EnsureDir(storageID, dstParent); err != nil {
		return err
	}
	var nodes []models.FsNode
	if err := s.subtreeScope(storageID, oldPath).Find(&nodes).Error; err != nil {
		return err
	}
	for i := range nodes {
		n := &nodes[i]
		if n.Path == oldPath {
			n.Path = newPath
		} else {
			n.Path = newPath + strings.TrimPrefix(n.Path, oldPath)
		}
		_, n.Name = SplitPath(n.Path)
		if err := s.db.Save(n).Error; err != nil {
			return err
		}
	}
	return nil
}

// CopySubtree 复制子树到新前缀，已存在的目标路径跳过
func (s *IndexService) CopySubtree(storageID uint, srcPath, dstPath string) error {
	dstParent, _ := SplitPath(dstPath)
	if err := s.EnsureDir(storageID, dstParent); err != nil {
		return err
	}
	var nodes []models.FsNode
	if err := s.subtreeScope(storageID, srcPath).Find(&nodes).Error; err != nil {
		return err
	}
	for _, n := range nodes {
		target := dstPath
		if n.Path != srcPath {
			target = dstPath + strings.TrimPrefix(n.Path, srcPath)
		}
		if _, err := s.GetNode(storageID, target); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		_, name := SplitPath(target)
		copied := models.FsNode{
			StorageID: storageID, Path: target, Name: name,
			IsDir: n.IsDir, SizeBytes: n.SizeBytes, MimeType: n.MimeType,
		}
		if err := s.db.Create(&copied).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteSubtree 软删节点及其子树
func (s *IndexService) DeleteSubtree(storageID uint, path string) error {
	return s.subtreeScope(storageID, path).Delete(&models.FsNode{}).Error
}

// subtreeScope 命中 path 自身与其所有后代
func (s *IndexService) subtreeScope(storageID uint, path string) *gorm.DB {
	prefix := escapeLike(path)
	return s.db.Model(&models.FsNode{}).Where(
		"storage_id = ? AND (path = ? OR path LIKE ? ESCAPE '\\')",
		storageID, path, prefix+"/%",
	)
}

// childScope 仅命中 parent 的直接子节点
func (s *IndexService) childScope(storageID uint, parent string) *gorm.DB {
	if parent == "/" || parent == "" {
		return s.db.Model(&models.FsNode{}).Where(
			"storage_id = ? AND path LIKE '/%' AND path NOT LIKE '/%/%'", storageID)
	}
	prefix := escapeLike(parent)
	return s.db.Model(&models.FsNode{}).Where(
		"storage_id = ? AND path LIKE ? ESCAPE '\\' AND path NOT LIKE ? ESCAPE '\\'",
		storageID, prefix+"/%", prefix+"/%/%",
	)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ----------------------------
// 游标分页
// ----------------------------

// Include 取值
const (
	IncludeDirectories = "directories"
	IncludeFiles       = "files"
	IncludeAll         = "all"
)

// ListQuery 列表查询参数。Paginated=false 时走兼容模式：
// 返回完整的合并列表（目录在前，文件在后），与旧调用方约定一致。
type ListQuery struct {
	Include    string // directories | files | all
	OrderBy    string // name | size | time
	Order      string // asc | desc
	Limit      int
	DirCursor  string
	FileCursor string
	CountOnly  bool
	FileType   string // 激活且非 all 时仅返回文件分区
	Search     string
	Paginated  bool
}

// NodeView 列表返回的节点视图
type NodeView struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// PageResult 列表结果。分页模式填 Directories/Files 与游标；
// 兼容模式填 Items；CountOnly 只填计数。
type PageResult struct {
	CurrentPath    string     `json:"currentPath"`
	Items          []NodeView `json:"items,omitempty"`
	Directories    []NodeView `json:"directories,omitempty"`
	Files          []NodeView `json:"files,omitempty"`
	DirHasMore     bool       `json:"dirHasMore"`
	FileHasMore    bool       `json:"fileHasMore"`
	NextDirCursor  string     `json:"nextDirCursor,omitempty"`
	NextFileCursor string     `json:"nextFileCursor,omitempty"`
	DirCount       int64      `json:"dirCount"`
	FileCount      int64      `json:"fileCount"`
}

// cursorToken 键集游标：上一页末行的排序键 + 行 id 作平键
type cursorToken struct {
	Key string `json:"k"`
	ID  uint   `json:"id"`
}

func encodeCursor(key string, id uint) string {
	raw, _ := json.Marshal(cursorToken{Key: key, ID: id})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(s string) (*cursorToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var token cursorToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &token, nil
}

// ListPage 目录列表查询。目录分区按 (lower(path), id) 键集分页，
// 文件分区按 (排序键, id)。多取一行判断 hasMore 后裁掉。
func (s *IndexService) ListPage(storageID uint, path string, q ListQuery) (*PageResult, error) {
	parent, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	result := &PageResult{CurrentPath: parent}

	include := q.Include
	if include == "" {
		include = IncludeAll
	}
	switch include {
	case IncludeDirectories, IncludeFiles, IncludeAll:
	default:
		return nil, fmt.Errorf("%w: include=%s", ErrInvalidQuery, include)
	}
	// 按内容类型浏览时不展示目录分区
	typeFilterActive := q.FileType != "" && q.FileType != "all"
	wantDirs := (include == IncludeAll || include == IncludeDirectories) && !typeFilterActive
	wantFiles := include == IncludeAll || include == IncludeFiles

	if q.CountOnly {
		if wantDirs {
			if err := s.fileScope(storageID, parent, q, true).Count(&result.DirCount).Error; err != nil {
				return nil, err
			}
		}
		if wantFiles {
			if err := s.fileScope(storageID, parent, q, false).Count(&result.FileCount).Error; err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	if !q.Paginated {
		return s.listLegacy(storageID, parent, q, wantDirs, wantFiles, result)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	if wantDirs {
		rows, hasMore, next, err := s.pageDirs(storageID, parent, q, limit)
		if err != nil {
			return nil, err
		}
		result.Directories = rows
		result.DirHasMore = hasMore
		result.NextDirCursor = next
	}
	if wantFiles {
		rows, hasMore, next, err := s.pageFiles(storageID, parent, q, limit)
		if err != nil {
			return nil, err
		}
		result.Files = rows
		result.FileHasMore = hasMore
		result.NextFileCursor = next
	}
	return result, nil
}

// fileScope 子节点基础查询，isDir 区分分区，文件分区叠加类型/搜索过滤
func (s *IndexService) fileScope(storageID uint, parent string, q ListQuery, isDir bool) *gorm.DB {
	tx := s.childScope(storageID, parent).Where("is_dir = ?", isDir)
	if search := strings.TrimSpace(q.Search); search != "" {
		tx = tx.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(search))+"%")
	}
	if !isDir && q.FileType != "" && q.FileType != "all" {
		if group, ok := fileTypeGroups[q.FileType]; ok {
			clauses := make([]string, 0, len(group))
			args := make([]interface{}, 0, len(group))
			for ext := range group {
				clauses = append(clauses, "LOWER(name) LIKE ?")
				args = append(args, "%."+ext)
			}
			tx = tx.Where(strings.Join(clauses, " OR "), args...)
		}
	}
	return tx
}

// pageDirs 目录分区：固定按 (lower(path), id) 升序
func (s *IndexService) pageDirs(storageID uint, parent string, q ListQuery, limit int) ([]NodeView, bool, string, error) {
	tx := s.fileScope(storageID, parent, q, true)
	if q.DirCursor != "" {
		token, err := decodeCursor(q.DirCursor)
		if err != nil {
			return nil, false, "", err
		}
		tx = tx.Where("(LOWER(path) > ?) OR (LOWER(path) = ? AND id > ?)", token.Key, token.Key, token.ID)
	}
	var nodes []models.FsNode
	if err := tx.Order("LOWER(path) ASC").Order("id ASC").Limit(limit + 1).Find(&nodes).Error; err != nil {
		return nil, false, "", err
	}
	hasMore := len(nodes) > limit
	if hasMore {
		nodes = nodes[:limit]
	}
	next := ""
	if hasMore && len(nodes) > 0 {
		last := nodes[len(nodes)-1]
		next = encodeCursor(strings.ToLower(last.Path), last.ID)
	}
	return toViews(nodes), hasMore, next, nil
}

// pageFiles 文件分区：按 (orderBy 字段, id) 键集分页
func (s *IndexService) pageFiles(storageID uint, parent string, q ListQuery, limit int) ([]NodeView, bool, string, error) {
	expr, desc := fileOrder(q)
	tx := s.fileScope(storageID, parent, q, false)

	if q.FileCursor != "" {
		token, err := decodeCursor(q.FileCursor)
		if err != nil {
			return nil, false, "", err
		}
		keyArg, err := cursorKeyArg(q.OrderBy, token.Key)
		if err != nil {
			return nil, false, "", err
		}
		cmp := ">"
		if desc {
			cmp = "<"
		}
		tx = tx.Where(
			fmt.Sprintf("(%s %s ?) OR (%s = ? AND id %s ?)", expr, cmp, expr, cmp),
			keyArg, keyArg, token.ID,
		)
	}

	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	var nodes []models.FsNode
	if err := tx.Order(expr + " " + dir).Order("id " + dir).Limit(limit + 1).Find(&nodes).Error; err != nil {
		return nil, false, "", err
	}
	hasMore := len(nodes) > limit
	if hasMore {
		nodes = nodes[:limit]
	}
	next := ""
	if hasMore && len(nodes) > 0 {
		next = encodeCursor(cursorKeyOf(q.OrderBy, nodes[len(nodes)-1]), nodes[len(nodes)-1].ID)
	}
	return toViews(nodes), hasMore, next, nil
}

// listLegacy 兼容模式：目录在前文件在后的完整列表，不分页
func (s *IndexService) listLegacy(storageID uint, parent string, q ListQuery, wantDirs, wantFiles bool, result *PageResult) (*PageResult, error) {
	if wantDirs {
		var dirs []models.FsNode
		if err := s.fileScope(storageID, parent, q, true).
			Order("LOWER(path) ASC").Order("id ASC").Find(&dirs).Error; err != nil {
			return nil, err
		}
		result.Items = append(result.Items, toViews(dirs)...)
	}
	if wantFiles {
		expr, desc := fileOrder(q)
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		var files []models.FsNode
		if err := s.fileScope(storageID, parent, q, false).
			Order(expr + " " + dir).Order("id " + dir).Find(&files).Error; err != nil {
			return nil, err
		}
		result.Items = append(result.Items, toViews(files)...)
	}
	if result.Items == nil {
		result.Items = []NodeView{}
	}
	return result, nil
}

// fileOrder 文件分区排序表达式。表达式来自白名单，不拼接用户输入。
func fileOrder(q ListQuery) (expr string, desc bool) {
	switch q.OrderBy {
	case "size":
		expr = "size_bytes"
	case "time":
		expr = "updated_at"
	default:
		expr = "LOWER(name)"
	}
	return expr, strings.EqualFold(q.Order, "desc")
}

// cursorKeyOf 末行排序键序列化进游标
func cursorKeyOf(orderBy string, n models.FsNode) string {
	switch orderBy {
	case "size":
		return strconv.FormatInt(n.SizeBytes, 10)
	case "time":
		return n.UpdatedAt.UTC().Format(time.RFC3339Nano)
	default:
		return strings.ToLower(n.Name)
	}
}

// cursorKeyArg 游标键反序列化为 SQL 比较参数
func cursorKeyArg(orderBy, key string) (interface{}, error) {
	switch orderBy {
	case "size":
		v, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		return v, nil
	case "time":
		t, err := time.Parse(time.RFC3339Nano, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		return t, nil
	default:
		return key, nil
	}
}

func toViews(nodes []models.FsNode) []NodeView {
	views := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		t := EntryTypeFile
		if n.IsDir {
			t = EntryTypeDirectory
		}
		views = append(views, NodeView{
			ID: n.ID, Name: n.Name, Path: n.Path, Type: t,
			Size: n.SizeBytes, MimeType: n.MimeType, ModifiedAt: n.UpdatedAt,
		})
	}
	return views
}
