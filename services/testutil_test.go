package services

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"filehub-manager/config"
	"filehub-manager/models"
)

// newTestDB 每个测试独立的 sqlite 库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.StorageConfig{},
		&models.FsNode{},
		&models.FileRecord{},
		&models.DirectoryChangeRecord{},
		&models.OperationLog{},
	))
	return db
}

// newLocalStorage 建一个 LOCAL 存储源并返回配置行与根目录
func newLocalStorage(t *testing.T, db *gorm.DB, name string) (*models.StorageConfig, string) {
	t.Helper()
	root := t.TempDir()
	cfg := &models.StorageConfig{Name: name, Kind: models.StorageKindLocal, LocalRootPath: root}
	require.NoError(t, db.Create(cfg).Error)
	return cfg, root
}

// newFileService 组装好的文件服务
func newFileService(t *testing.T, db *gorm.DB) (*FileService, *IndexService) {
	t.Helper()
	index := NewIndexService(db)
	files := NewFileService(db, index, &config.FileStorageConfig{PresignExpireSeconds: 300})
	return files, index
}

// makeFileHeader 构造内存里的 multipart 文件头
func makeFileHeader(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"][0]
}

// writeLocalFile 直接往存储根目录写文件，模拟后端里已有的数据
func writeLocalFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}
