package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"filehub-manager/models"
)

// StorageService 存储源配置管理。删除配置只软删配置行，不碰底层数据。
type StorageService struct {
	db            *gorm.DB
	presignExpire time.Duration
}

func NewStorageService(db *gorm.DB, presignExpire time.Duration) *StorageService {
	return &StorageService{db: db, presignExpire: presignExpire}
}

// StorageStatus 列表返回的存储源视图，附带探活结果
type StorageStatus struct {
	models.StorageConfig
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// List 返回所有存储源，逐个做一次轻量探活
func (s *StorageService) List(ctx context.Context) ([]StorageStatus, error) {
	var configs []models.StorageConfig
	if err := s.db.Order("id ASC").Find(&configs).Error; err != nil {
		return nil, err
	}
	statuses := make([]StorageStatus, 0, len(configs))
	for i := range configs {
		status := StorageStatus{StorageConfig: configs[i]}
		if err := s.probe(ctx, &configs[i]); err != nil {
			status.Error = err.Error()
		} else {
			status.Available = true
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Get 按 id 取存储源
func (s *StorageService) Get(id uint) (*models.StorageConfig, error) {
	var cfg models.StorageConfig
	if err := s.db.First(&cfg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: storage %d", ErrConfigInvalid, id)
		}
		return nil, err
	}
	return &cfg, nil
}

// Create 新建存储源，名称唯一
func (s *StorageService) Create(req *models.StorageConfigRequest) (*models.StorageConfig, error) {
	if err := validateStorageRequest(req); err != nil {
		return nil, err
	}
	var count int64
	if err := s.db.Model(&models.StorageConfig{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: 名称已存在", ErrConfigInvalid)
	}
	cfg := requestToConfig(req, &models.StorageConfig{})
	if err := s.db.Create(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update 更新存储源。密钥留空表示保持原值。
func (s *StorageService) Update(id uint, req *models.StorageConfigRequest) (*models.StorageConfig, error) {
	if err := validateStorageRequest(req); err != nil {
		return nil, err
	}
	cfg, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	var count int64
	if err := s.db.Model(&models.StorageConfig{}).
		Where("name = ? AND id <> ?", req.Name, id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: 名称已存在", ErrConfigInvalid)
	}
	oldSecret := cfg.SecretAccessKey
	cfg = requestToConfig(req, cfg)
	if req.SecretAccessKey == "" {
		cfg.SecretAccessKey = oldSecret
	}
	if err := s.db.Save(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}

// Delete 软删存储源配置
func (s *StorageService) Delete(id uint) error {
	cfg, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Delete(cfg).Error
}

// TestConnection 用请求体里的配置做一次连通性测试，不落库
func (s *StorageService) TestConnection(ctx context.Context, req *models.StorageConfigRequest) error {
	if err := validateStorageRequest(req); err != nil {
		return err
	}
	cfg := requestToConfig(req, &models.StorageConfig{})
	return s.probe(ctx, cfg)
}

// probe 构建后端并列一次根目录
func (s *StorageService) probe(ctx context.Context, cfg *models.StorageConfig) error {
	backend, err := BuildBackend(cfg, s.presignExpire)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = backend.List(ctx, "/", ListOptions{})
	return err
}

// BootstrapDefaultLocal 确保存在一个默认 LOCAL 存储源，首次启动时创建
func (s *StorageService) BootstrapDefaultLocal(root string) (*models.StorageConfig, error) {
	if root == "" {
		return nil, nil
	}
	var cfg models.StorageConfig
	err := s.db.Where("kind = ? AND local_root_path = ?", models.StorageKindLocal, root).First(&cfg).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	cfg = models.StorageConfig{
		Name:          "本地存储",
		Kind:          models.StorageKindLocal,
		LocalRootPath: root,
	}
	if err := s.db.Create(&cfg).Error; err != nil {
		return nil, err
	}
	log.Printf("已创建默认本地存储源 root=%s", root)
	return &cfg, nil
}

// validateStorageRequest 按类型校验必填字段
func validateStorageRequest(req *models.StorageConfigRequest) error {
	switch req.Kind {
	case models.StorageKindLocal:
		if req.LocalRootPath == "" {
			return fmt.Errorf("%w: LOCAL 存储缺少 local_root_path", ErrConfigInvalid)
		}
	case models.StorageKindS3:
		if req.Region == "" || req.BucketName == "" {
			return fmt.Errorf("%w: S3 存储缺少 region 或 bucket_name", ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: 未知存储类型 %q", ErrConfigInvalid, req.Kind)
	}
	switch req.ACLType {
	case "", models.ACLPrivate, models.ACLPublic, models.ACLCustom:
	default:
		return fmt.Errorf("%w: 未知 acl_type %q", ErrConfigInvalid, req.ACLType)
	}
	return nil
}

func requestToConfig(req *models.StorageConfigRequest, cfg *models.StorageConfig) *models.StorageConfig {
	cfg.Name = req.Name
	cfg.ExternalID = req.ExternalID
	cfg.Kind = req.Kind
	cfg.Region = req.Region
	cfg.BucketName = req.BucketName
	cfg.PathPrefix = req.PathPrefix
	cfg.AccessKeyID = req.AccessKeyID
	if req.SecretAccessKey != "" {
		cfg.SecretAccessKey = req.SecretAccessKey
	}
	cfg.EndpointURL = req.EndpointURL
	cfg.CustomDomain = req.CustomDomain
	if req.UseHTTPS != nil {
		cfg.UseHTTPS = *req.UseHTTPS
	} else if cfg.ID == 0 {
		cfg.UseHTTPS = true
	}
	if req.ACLType != "" {
		cfg.ACLType = req.ACLType
	} else if cfg.ACLType == "" {
		cfg.ACLType = models.ACLPrivate
	}
	cfg.LocalRootPath = req.LocalRootPath
	return cfg
}
