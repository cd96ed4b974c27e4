package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filehub-manager/models"
)

func TestSyncStorageRebuildsIndex(t *testing.T) {
	db := newTestDB(t)
	files, index := newFileService(t, db)
	syncSvc := NewSyncService(db, files, index)
	cfg, root := newLocalStorage(t, db, "local")
	writeLocalFile(t, root, "docs/a.txt", "hello")
	writeLocalFile(t, root, "docs/deep/b.txt", "world")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	stats, err := syncSvc.SyncStorage(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 3, stats.Dirs)

	for _, p := range []string{"/docs", "/docs/a.txt", "/docs/deep", "/docs/deep/b.txt", "/empty"} {
		_, err := index.GetNode(cfg.ID, p)
		assert.NoError(t, err, p)
	}

	// 扫描发现的文件补进台账
	var records int64
	db.Model(&models.FileRecord{}).Where("storage_id = ?", cfg.ID).Count(&records)
	assert.EqualValues(t, 2, records)

	// 重复同步不产生重复台账
	_, err = syncSvc.SyncStorage(context.Background(), cfg.ID)
	require.NoError(t, err)
	db.Model(&models.FileRecord{}).Where("storage_id = ?", cfg.ID).Count(&records)
	assert.EqualValues(t, 2, records)
}

// LOCAL 同步会清掉后端已不存在的索引行
func TestSyncStoragePrunesStaleNodes(t *testing.T) {
	db := newTestDB(t)
	files, index := newFileService(t, db)
	syncSvc := NewSyncService(db, files, index)
	cfg, root := newLocalStorage(t, db, "local")
	writeLocalFile(t, root, "live.txt", "x")
	require.NoError(t, index.UpsertFile(cfg.ID, "/live.txt", 1, "text/plain"))
	require.NoError(t, index.UpsertFile(cfg.ID, "/ghost.txt", 1, "text/plain"))

	stats, err := syncSvc.SyncStorage(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pruned)

	_, err = index.GetNode(cfg.ID, "/live.txt")
	assert.NoError(t, err)
	_, err = index.GetNode(cfg.ID, "/ghost.txt")
	assert.Error(t, err)
}
