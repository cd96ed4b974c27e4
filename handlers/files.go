package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"filehub-manager/models"
	"filehub-manager/services"
)

type FileHandler struct {
	files     *services.FileService
	clipboard *services.ClipboardService
	journal   *services.JournalService
	sync      *services.SyncService
	oplog     *services.OperationLogService
}

func NewFileHandler(files *services.FileService, clipboard *services.ClipboardService, journal *services.JournalService, syncSvc *services.SyncService, oplog *services.OperationLogService) *FileHandler {
	return &FileHandler{
		files:     files,
		clipboard: clipboard,
		journal:   journal,
		sync:      syncSvc,
		oplog:     oplog,
	}
}

// storageIDParam 解析必填的 storageId 查询参数
func storageIDParam(c *gin.Context) (uint, bool) {
	raw := c.Query("storageId")
	if raw == "" {
		badRequest(c, "缺少 storageId")
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		badRequest(c, "storageId 不是合法数字")
		return 0, false
	}
	return uint(id), true
}

// List 目录列表
// GET /api/files?storageId=1&path=/docs&limit=50&dirCursor=...&fileCursor=...
// 带 limit/cursor/countOnly 任一参数时走分页模式，否则返回完整合并列表
func (h *FileHandler) List(c *gin.Context) {
	storageID, ok := storageIDParam(c)
	if !ok {
		return
	}
	path := c.DefaultQuery("path", "/")

	q := services.ListQuery{
		Include:    c.DefaultQuery("include", services.IncludeAll),
		OrderBy:    c.DefaultQuery("orderBy", "name"),
		Order:      c.DefaultQuery("order", "asc"),
		DirCursor:  c.Query("dirCursor"),
		FileCursor: c.Query("fileCursor"),
		FileType:   c.Query("fileType"),
		Search:     c.Query("search"),
		CountOnly:  c.Query("countOnly") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 500 {
			badRequest(c, "limit 不合法")
			return
		}
		q.Limit = limit
		q.Paginated = true
	}
	if q.DirCursor != "" || q.FileCursor != "" || q.CountOnly {
		q.Paginated = true
	}

	result, err := h.files.List(storageID, path, q)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// Upload 批量上传
// POST /api/files (multipart: storageId, path, files[])
func (h *FileHandler) Upload(c *gin.Context) {
	start := time.Now()
	raw := c.PostForm("storageId")
	storageID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		badRequest(c, "storageId 不是合法数字")
		return
	}
	dir := c.DefaultPostForm("path", "/")

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "解析上传表单失败")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		badRequest(c, "没有上传文件")
		return
	}

	results, err := h.files.Upload(c.Request.Context(), uint(storageID), dir, files)
	h.logOp(c, "file", "create", start, err, gin.H{"storageId": storageID, "path": dir, "count": len(files)})
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "上传完成",
		"data":    results,
	})
}

// Download 下载：LOCAL 走流式，S3 走重定向
// GET /api/files/download?storageId=1&path=/docs/a.txt
func (h *FileHandler) Download(c *gin.Context) {
	h.resolve(c, true)
}

// Preview 预览：与下载一致但不带附件头
// GET /api/files/preview?storageId=1&path=/docs/a.png
func (h *FileHandler) Preview(c *gin.Context) {
	h.resolve(c, false)
}

func (h *FileHandler) resolve(c *gin.Context, download bool) {
	storageID, ok := storageIDParam(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		badRequest(c, "缺少 path")
		return
	}
	resolved, err := h.files.Resolve(c.Request.Context(), storageID, path, download)
	if err != nil {
		failWith(c, err)
		return
	}
	if resolved.Mode == services.URLModeRedirect {
		c.Redirect(http.StatusFound, resolved.URL)
		return
	}
	if resolved.MimeType != "" {
		c.Header("Content-Type", resolved.MimeType)
	}
	if download {
		c.FileAttachment(resolved.FilePath, resolved.FileName)
		return
	}
	c.File(resolved.FilePath)
}

type FolderCreateBody struct {
	StorageID uint   `json:"storageId" binding:"required"`
	Path      string `json:"path" binding:"required"`
	Name      string `json:"name" binding:"required"`
}

// CreateFolder 新建目录，重名自动改名
// POST /api/folders
func (h *FileHandler) CreateFolder(c *gin.Context) {
	start := time.Now()
	var body FolderCreateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	finalPath, err := h.files.CreateFolder(c.Request.Context(), body.StorageID, body.Path, body.Name)
	h.logOp(c, "folder", "create", start, err, body)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "目录已创建",
		"data":    gin.H{"path": finalPath},
	})
}

type RenameBody struct {
	StorageID uint   `json:"storageId" binding:"required"`
	OldPath   string `json:"oldPath" binding:"required"`
	NewPath   string `json:"newPath" binding:"required"`
}

// Rename 改名/搬移
// PATCH /api/files
func (h *FileHandler) Rename(c *gin.Context) {
	start := time.Now()
	var body RenameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	err := h.files.Rename(c.Request.Context(), body.StorageID, body.OldPath, body.NewPath)
	h.logOp(c, "file", "update", start, err, body)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "重命名成功",
	})
}

type MoveCopyBody struct {
	StorageID       uint     `json:"storageId" binding:"required"`
	SourcePaths     []string `json:"sourcePaths" binding:"required,min=1"`
	DestinationPath string   `json:"destinationPath" binding:"required"`
}

// Move 批量移动，整体 200，逐项报告结果
// POST /api/files/move
func (h *FileHandler) Move(c *gin.Context) {
	h.relocate(c, true)
}

// Copy 批量复制
// POST /api/files/copy
func (h *FileHandler) Copy(c *gin.Context) {
	h.relocate(c, false)
}

func (h *FileHandler) relocate(c *gin.Context, move bool) {
	start := time.Now()
	var body MoveCopyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	var results []services.OpResult
	var err error
	if move {
		results, err = h.files.Move(c.Request.Context(), body.StorageID, body.SourcePaths, body.DestinationPath)
	} else {
		results, err = h.files.Copy(c.Request.Context(), body.StorageID, body.SourcePaths, body.DestinationPath)
	}
	h.logOp(c, "file", "update", start, err, body)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

type DeleteBody struct {
	StorageID uint     `json:"storageId" binding:"required"`
	Paths     []string `json:"paths" binding:"required,min=1"`
}

// Delete 批量删除，整体 200,逐项报告结果
// DELETE /api/files
func (h *FileHandler) Delete(c *gin.Context) {
	start := time.Now()
	var body DeleteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	results, err := h.files.Delete(c.Request.Context(), body.StorageID, body.Paths)
	h.logOp(c, "file", "delete", start, err, body)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

type SyncBody struct {
	StorageID uint `json:"storageId" binding:"required"`
}

// Sync 全量对账：从后端实时列表重建索引，同时导入变更日志
// POST /api/files/sync
func (h *FileHandler) Sync(c *gin.Context) {
	start := time.Now()
	var body SyncBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	journalStats := h.journal.ImportAll()
	stats, err := h.sync.SyncStorage(c.Request.Context(), body.StorageID)
	h.logOp(c, "file", "other", start, err, body)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"sync":    stats,
			"journal": journalStats[body.StorageID],
		},
	})
}

type ClipboardSetBody struct {
	Action    string   `json:"action" binding:"required,oneof=copy cut"`
	StorageID uint     `json:"storageId" binding:"required"`
	Paths     []string `json:"paths" binding:"required,min=1"`
}

// ClipboardSet 写入剪贴板
// POST /api/files/clipboard
func (h *FileHandler) ClipboardSet(c *gin.Context) {
	var body ClipboardSetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	if err := h.clipboard.Set(c.GetUint("user_id"), body.Action, body.StorageID, body.Paths); err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "已加入剪贴板",
	})
}

// ClipboardGet 查看剪贴板
// GET /api/files/clipboard
func (h *FileHandler) ClipboardGet(c *gin.Context) {
	entry := h.clipboard.Get(c.GetUint("user_id"))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entry,
	})
}

// ClipboardClear 清空剪贴板
// DELETE /api/files/clipboard
func (h *FileHandler) ClipboardClear(c *gin.Context) {
	h.clipboard.Clear(c.GetUint("user_id"))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "剪贴板已清空",
	})
}

type PasteBody struct {
	StorageID       uint   `json:"storageId" binding:"required"`
	DestinationPath string `json:"destinationPath" binding:"required"`
	ClearAfter      *bool  `json:"clearAfter"` // 省略时默认 true
}

// Paste 粘贴剪贴板内容到目标目录，默认粘贴后清空剪贴板
// POST /api/files/paste
func (h *FileHandler) Paste(c *gin.Context) {
	start := time.Now()
	var body PasteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	clearAfter := true
	if body.ClearAfter != nil {
		clearAfter = *body.ClearAfter
	}
	results, err := h.clipboard.Paste(c.Request.Context(), c.GetUint("user_id"), body.StorageID, body.DestinationPath, clearAfter)
	h.logOp(c, "file", "update", start, err, body)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

// logOp 记录变更类接口的操作日志
func (h *FileHandler) logOp(c *gin.Context, module, businessType string, start time.Time, opErr error, params interface{}) {
	entry := &models.OperationLog{
		Module:       module,
		BusinessType: businessType,
		OperatorName: c.GetString("username"),
		OperatorIP:   c.ClientIP(),
		RequestURI:   c.Request.RequestURI,
		Method:       c.Request.Method,
		Status:       "success",
		CostMs:       time.Since(start).Milliseconds(),
		OperateTime:  start,
	}
	if raw, err := json.Marshal(params); err == nil {
		entry.Params = string(raw)
	}
	if opErr != nil {
		entry.Status = "failure"
		entry.ErrorMessage = opErr.Error()
	}
	h.oplog.Record(entry)
}
