package config

import (
	"os"
	"strconv"
)

// FileStorageConfig 文件存储相关配置
type FileStorageConfig struct {
	LocalFileRoot        string // 默认本地存储根目录，首次启动时用于引导默认存储源
	PresignExpireSeconds int    // S3 私有读预签名 URL 有效期
}

// LoadFileStorageConfig 从环境变量加载文件存储配置
func LoadFileStorageConfig() *FileStorageConfig {
	expire, err := strconv.Atoi(getEnvOrDefault("PRESIGN_EXPIRE_SECONDS", "300"))
	if err != nil || expire <= 0 {
		expire = 300
	}

	return &FileStorageConfig{
		LocalFileRoot:        os.Getenv("LOCAL_FILE_ROOT"),
		PresignExpireSeconds: expire,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
