package models

import (
	"time"

	"gorm.io/gorm"
)

// FileRecord 文件上传台账：每次成功上传写入一条，之后不再修改。
// 与 FsNode 相互独立，节点被移除后台账仍保留用于追溯。
type FileRecord struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	FileID       string         `json:"file_id" gorm:"type:varchar(36);index"` // 对外引用键
	StorageID    uint           `json:"storage_id" gorm:"index;not null"`
	Directory    string         `json:"directory" gorm:"type:varchar(1024)"` // 上传目标目录，根目录记为 ""
	OriginalName string         `json:"original_name" gorm:"type:varchar(255);not null"`
	AliasName    string         `json:"alias_name" gorm:"type:varchar(255);not null"` // 防重名后实际落盘的名字
	Purpose      string         `json:"purpose" gorm:"type:varchar(64);default:general"`
	SizeBytes    int64          `json:"size_bytes" gorm:"default:0"`
	MimeType     string         `json:"mime_type" gorm:"type:varchar(255)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
