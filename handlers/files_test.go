package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"filehub-manager/config"
	"filehub-manager/models"
	"filehub-manager/services"
)

type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	storageID uint
	root      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.StorageConfig{}, &models.FsNode{}, &models.FileRecord{},
		&models.DirectoryChangeRecord{}, &models.OperationLog{},
	))

	root := t.TempDir()
	cfg := &models.StorageConfig{Name: "local", Kind: models.StorageKindLocal, LocalRootPath: root}
	require.NoError(t, db.Create(cfg).Error)

	index := services.NewIndexService(db)
	files := services.NewFileService(db, index, &config.FileStorageConfig{PresignExpireSeconds: 300})
	clipboard := services.NewClipboardService(files)
	journal := services.NewJournalService(db, index)
	syncSvc := services.NewSyncService(db, files, index)
	oplog := services.NewOperationLogService(db)
	h := NewFileHandler(files, clipboard, journal, syncSvc, oplog)

	r := gin.New()
	// 测试里用固定用户身份替代认证中间件
	r.Use(func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Set("username", "tester")
	})
	r.GET("/api/files", h.List)
	r.PATCH("/api/files", h.Rename)
	r.DELETE("/api/files", h.Delete)
	r.GET("/api/files/download", h.Download)
	r.POST("/api/files/move", h.Move)
	r.POST("/api/files/copy", h.Copy)
	r.POST("/api/files/sync", h.Sync)
	r.POST("/api/files/clipboard", h.ClipboardSet)
	r.GET("/api/files/clipboard", h.ClipboardGet)
	r.DELETE("/api/files/clipboard", h.ClipboardClear)
	r.POST("/api/files/paste", h.Paste)
	r.POST("/api/folders", h.CreateFolder)

	return &testEnv{router: r, db: db, storageID: cfg.ID, root: root}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedFile(t *testing.T, rel, content string) {
	t.Helper()
	full := filepath.Join(e.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	// 索引跟进（模拟同步后的状态）
	w := e.do(t, http.MethodPost, "/api/files/sync", gin.H{"storageId": e.storageID})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListRequiresStorageID(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/files", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPaginatedResponseShape(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "docs/a.txt", "a")

	w := env.do(t, http.MethodGet, "/api/files?storageId=1&path=/docs&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			CurrentPath string `json:"currentPath"`
			Files       []struct {
				Name string `json:"name"`
			} `json:"files"`
			FileHasMore bool `json:"fileHasMore"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "/docs", resp.Data.CurrentPath)
	require.Len(t, resp.Data.Files, 1)
	assert.Equal(t, "a.txt", resp.Data.Files[0].Name)
	assert.False(t, resp.Data.FileHasMore)
}

func TestRenameConflictMapsTo409(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "a.txt", "a")
	env.seedFile(t, "b.txt", "b")

	w := env.do(t, http.MethodPatch, "/api/files", gin.H{
		"storageId": env.storageID, "oldPath": "/a.txt", "newPath": "/b.txt",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRenameMissingMapsTo404(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPatch, "/api/files", gin.H{
		"storageId": env.storageID, "oldPath": "/missing.txt", "newPath": "/x.txt",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTraversalMapsTo400(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPatch, "/api/files", gin.H{
		"storageId": env.storageID, "oldPath": "/../etc/passwd", "newPath": "/x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// 批量删除整体 200，结果逐项上报
func TestBulkDeleteAlways200(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "a.txt", "a")

	w := env.do(t, http.MethodDelete, "/api/files", gin.H{
		"storageId": env.storageID, "paths": []string{"/a.txt", "/missing.txt"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Path   string `json:"path"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "success", resp.Data[0].Status)
	assert.Equal(t, "failure", resp.Data[1].Status)
}

func TestDownloadMissingMapsTo404(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/files/download?storageId=1&path=/nope.txt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadStreamsLocalFile(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "a.txt", "hello world")

	w := env.do(t, http.MethodGet, "/api/files/download?storageId=1&path=/a.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "a.txt")
}

func TestClipboardRoundTripAndCrossStoragePaste(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "a.txt", "a")

	w := env.do(t, http.MethodPost, "/api/files/clipboard", gin.H{
		"action": "cut", "storageId": env.storageID, "paths": []string{"/a.txt"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/files/clipboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cut"`)

	// 跨存储粘贴 → 400
	other := &models.StorageConfig{Name: "other", Kind: models.StorageKindLocal, LocalRootPath: t.TempDir()}
	require.NoError(t, env.db.Create(other).Error)
	w = env.do(t, http.MethodPost, "/api/files/paste", gin.H{
		"storageId": other.ID, "destinationPath": "/",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 源文件未被移动
	_, err := os.Stat(filepath.Join(env.root, "a.txt"))
	assert.NoError(t, err)

	w = env.do(t, http.MethodDelete, "/api/files/clipboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/files/clipboard", nil)
	assert.Contains(t, w.Body.String(), `"data":null`)
}

// clearAfter 省略时默认清空剪贴板；显式 false 时保留
func TestPasteClearAfterDefault(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "a.txt", "a")

	w := env.do(t, http.MethodPost, "/api/folders", gin.H{
		"storageId": env.storageID, "path": "/", "name": "dst",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// copy 粘贴不带 clearAfter → 剪贴板被清空
	w = env.do(t, http.MethodPost, "/api/files/clipboard", gin.H{
		"action": "copy", "storageId": env.storageID, "paths": []string{"/a.txt"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/files/paste", gin.H{
		"storageId": env.storageID, "destinationPath": "/dst",
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/files/clipboard", nil)
	assert.Contains(t, w.Body.String(), `"data":null`)

	// cut 粘贴显式 clearAfter=false → 剪贴板保留
	env.seedFile(t, "b.txt", "b")
	w = env.do(t, http.MethodPost, "/api/files/clipboard", gin.H{
		"action": "cut", "storageId": env.storageID, "paths": []string{"/b.txt"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/files/paste", gin.H{
		"storageId": env.storageID, "destinationPath": "/dst", "clearAfter": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/files/clipboard", nil)
	assert.Contains(t, w.Body.String(), `"cut"`)
	assert.Contains(t, w.Body.String(), "/b.txt")
}

func TestCreateFolderEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/folders", gin.H{
		"storageId": env.storageID, "path": "/", "name": "docs",
	})
	require.Equal(t, http.StatusOK, w.Code)

	info, err := os.Stat(filepath.Join(env.root, "docs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// 重名自动改名
	w = env.do(t, http.MethodPost, "/api/folders", gin.H{
		"storageId": env.storageID, "path": "/", "name": "docs",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docs(1)")
}

// 变更类接口留下操作日志
func TestMutationWritesOperationLog(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/folders", gin.H{
		"storageId": env.storageID, "path": "/", "name": "docs",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var logs []models.OperationLog
	require.NoError(t, env.db.Where("module = ?", "folder").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "create", logs[0].BusinessType)
	assert.Equal(t, "tester", logs[0].OperatorName)
	assert.Equal(t, "success", logs[0].Status)
}
