package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filehub-manager/models"
)

func TestNewS3BackendRequiresCredentials(t *testing.T) {
	_, err := NewS3Backend(&models.StorageConfig{Kind: models.StorageKindS3}, time.Minute)
	assert.ErrorIs(t, err, ErrConfigInvalid)

	_, err = NewS3Backend(&models.StorageConfig{
		Kind: models.StorageKindS3, Region: "us-east-1", BucketName: "b",
	}, time.Minute)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestS3JoinKeyWithPrefix(t *testing.T) {
	b := &S3Backend{prefix: "uploads"}
	key, err := b.joinKey("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "uploads/docs/a.txt", key)

	key, err = b.joinKey("/")
	require.NoError(t, err)
	assert.Equal(t, "uploads", key)

	_, err = b.joinKey("/../escape")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestS3JoinKeyWithoutPrefix(t *testing.T) {
	b := &S3Backend{}
	key, err := b.joinKey("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "docs/a.txt", key)
}

func TestS3DirKeyTrailingSlash(t *testing.T) {
	b := &S3Backend{prefix: "uploads"}
	key, err := b.dirKey("/docs")
	require.NoError(t, err)
	assert.Equal(t, "uploads/docs/", key)

	b = &S3Backend{}
	key, err = b.dirKey("/")
	require.NoError(t, err)
	assert.Equal(t, "", key)
}

// 根目录不是对象，Stat 直接判定为目录，不发请求
func TestS3StatRootIsDirectory(t *testing.T) {
	b := &S3Backend{}
	st, err := b.Stat(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, st.IsDir)

	b = &S3Backend{prefix: "uploads"}
	st, err = b.Stat(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, st.IsDir)
}

func TestS3PublicURLComposition(t *testing.T) {
	// 桶的公网域名
	b := &S3Backend{bucket: "media", region: "us-east-1", useHTTPS: true}
	assert.Equal(t, "https://media.s3.us-east-1.amazonaws.com/docs/a.txt", b.publicURL("docs/a.txt"))

	// 关闭 HTTPS
	b.useHTTPS = false
	assert.Equal(t, "http://media.s3.us-east-1.amazonaws.com/docs/a.txt", b.publicURL("docs/a.txt"))

	// 自定义域名优先，去协议与尾斜杠
	b = &S3Backend{bucket: "media", customDomain: "https://cdn.example.com/", useHTTPS: true}
	assert.Equal(t, "https://cdn.example.com/docs/a.txt", b.publicURL("docs/a.txt"))

	// 自定义 endpoint（MinIO 路径风格）
	b = &S3Backend{bucket: "media", endpoint: "http://minio:9000"}
	assert.Equal(t, "http://minio:9000/media/docs/a.txt", b.publicURL("docs/a.txt"))
}

func TestS3PublicURLEscapesKey(t *testing.T) {
	b := &S3Backend{bucket: "media", region: "us-east-1", useHTTPS: true}
	url := b.publicURL("docs/年度 报告.pdf")
	assert.NotContains(t, url, " ")
	assert.Contains(t, url, "docs/")
}
