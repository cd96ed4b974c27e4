package models

import (
	"time"

	"gorm.io/gorm"
)

// 存储类型
const (
	StorageKindLocal = "LOCAL"
	StorageKindS3    = "S3"
)

// S3 访问控制类型，决定下载/预览 URL 的生成方式
const (
	ACLPrivate = "private"
	ACLPublic  = "public"
	ACLCustom  = "custom"
)

// StorageConfig 存储源配置：保存访问不同存储后端所需的连接信息
//   - Kind 仅允许 "LOCAL" 与 "S3"
//   - S3 字段：Region/BucketName/PathPrefix/AccessKeyID/SecretAccessKey/EndpointURL/CustomDomain/UseHTTPS/ACLType
//   - LOCAL 字段：LocalRootPath
//   - 为防止误删，仅做软删除；删除配置不会触碰底层存储
type StorageConfig struct {
	ID         uint   `json:"id" gorm:"primarykey"`
	Name       string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	ExternalID string `json:"external_id" gorm:"type:varchar(100)"` // 可选的外部引用键
	Kind       string `json:"kind" gorm:"type:varchar(16);not null"`

	// S3 only
	Region          string `json:"region" gorm:"type:varchar(64)"`
	BucketName      string `json:"bucket_name" gorm:"type:varchar(128)"`
	PathPrefix      string `json:"path_prefix" gorm:"type:varchar(255)"`
	AccessKeyID     string `json:"access_key_id" gorm:"type:varchar(128)"`
	SecretAccessKey string `json:"-" gorm:"type:varchar(256)"`
	EndpointURL     string `json:"endpoint_url" gorm:"type:varchar(255)"` // 可选，兼容 MinIO 等
	CustomDomain    string `json:"custom_domain" gorm:"type:varchar(255)"`
	UseHTTPS        bool   `json:"use_https" gorm:"default:true"`
	ACLType         string `json:"acl_type" gorm:"type:varchar(16);default:private"`

	// LOCAL only
	LocalRootPath string `json:"local_root_path" gorm:"type:varchar(512)"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// StorageConfigRequest 创建/更新存储源的请求体
type StorageConfigRequest struct {
	Name            string `json:"name" binding:"required"`
	ExternalID      string `json:"external_id"`
	Kind            string `json:"kind" binding:"required"`
	Region          string `json:"region"`
	BucketName      string `json:"bucket_name"`
	PathPrefix      string `json:"path_prefix"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	EndpointURL     string `json:"endpoint_url"`
	CustomDomain    string `json:"custom_domain"`
	UseHTTPS        *bool  `json:"use_https"`
	ACLType         string `json:"acl_type"`
	LocalRootPath   string `json:"local_root_path"`
}
