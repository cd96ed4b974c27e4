package services

import (
	"fmt"
	"strings"
	"time"

	"filehub-manager/models"
)

// BuildBackend 按存储源配置构造后端实例。配置不完整时返回 ErrConfigInvalid。
func BuildBackend(cfg *models.StorageConfig, presignExpire time.Duration) (StorageBackend, error) {
	switch strings.ToUpper(cfg.Kind) {
	case models.StorageKindLocal:
		if cfg.LocalRootPath == "" {
			return nil, fmt.Errorf("%w: LOCAL config requires local_root_path", ErrConfigInvalid)
		}
		return NewLocalBackend(cfg.LocalRootPath)
	case models.StorageKindS3:
		return NewS3Backend(cfg, presignExpire)
	default:
		return nil, fmt.Errorf("%w: unsupported storage kind %q", ErrConfigInvalid, cfg.Kind)
	}
}
