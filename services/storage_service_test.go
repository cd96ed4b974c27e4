package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filehub-manager/models"
)

func newStorageService(t *testing.T) *StorageService {
	t.Helper()
	return NewStorageService(newTestDB(t), 5*time.Minute)
}

func localRequest(name, root string) *models.StorageConfigRequest {
	return &models.StorageConfigRequest{
		Name: name, Kind: models.StorageKindLocal, LocalRootPath: root,
	}
}

func TestStorageCreateValidation(t *testing.T) {
	svc := newStorageService(t)

	_, err := svc.Create(&models.StorageConfigRequest{Name: "x", Kind: "FTP"})
	assert.ErrorIs(t, err, ErrConfigInvalid)

	_, err = svc.Create(&models.StorageConfigRequest{Name: "x", Kind: models.StorageKindLocal})
	assert.ErrorIs(t, err, ErrConfigInvalid)

	_, err = svc.Create(&models.StorageConfigRequest{Name: "x", Kind: models.StorageKindS3})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestStorageCreateNameUnique(t *testing.T) {
	svc := newStorageService(t)
	root := t.TempDir()

	_, err := svc.Create(localRequest("主存储", root))
	require.NoError(t, err)
	_, err = svc.Create(localRequest("主存储", root))
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestStorageUpdateKeepsSecret(t *testing.T) {
	svc := newStorageService(t)

	use := true
	created, err := svc.Create(&models.StorageConfigRequest{
		Name: "oss", Kind: models.StorageKindS3,
		Region: "us-east-1", BucketName: "b",
		AccessKeyID: "ak", SecretAccessKey: "sk-original",
		UseHTTPS: &use,
	})
	require.NoError(t, err)

	updated, err := svc.Update(created.ID, &models.StorageConfigRequest{
		Name: "oss-renamed", Kind: models.StorageKindS3,
		Region: "us-east-1", BucketName: "b",
		AccessKeyID: "ak", // 密钥留空表示保持原值
	})
	require.NoError(t, err)
	assert.Equal(t, "oss-renamed", updated.Name)
	assert.Equal(t, "sk-original", updated.SecretAccessKey)
}

func TestStorageDeleteIsSoft(t *testing.T) {
	svc := newStorageService(t)
	created, err := svc.Create(localRequest("tmp", t.TempDir()))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(created.ID))
	_, err = svc.Get(created.ID)
	assert.ErrorIs(t, err, ErrConfigInvalid)

	// 底层目录不受影响
	_, statErr := os.Stat(created.LocalRootPath)
	assert.NoError(t, statErr)
}

func TestStorageTestConnection(t *testing.T) {
	svc := newStorageService(t)
	ctx := context.Background()

	assert.NoError(t, svc.TestConnection(ctx, localRequest("ok", t.TempDir())))
	assert.Error(t, svc.TestConnection(ctx, localRequest("bad", filepath.Join(string(os.PathSeparator), "proc", "no-such-root", "x"))))
}

func TestBootstrapDefaultLocal(t *testing.T) {
	db := newTestDB(t)
	svc := NewStorageService(db, time.Minute)
	root := filepath.Join(t.TempDir(), "data")

	first, err := svc.BootstrapDefaultLocal(root)
	require.NoError(t, err)
	require.NotNil(t, first)

	// 再次启动复用同一条配置
	second, err := svc.BootstrapDefaultLocal(root)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.StorageConfig{}).Count(&count)
	assert.EqualValues(t, 1, count)

	// 未配置根目录时跳过
	none, err := svc.BootstrapDefaultLocal("")
	require.NoError(t, err)
	assert.Nil(t, none)
}
