package models

import (
	"time"

	"gorm.io/gorm"
)

// FsNode 统一的文件系统节点（文件与目录合并存储）
//
// 存储规则：
//   - Path 以 '/' 开头，不以 '/' 结尾；根目录不入库；示例："/docs"、"/docs/a.txt"
//   - Name 为当前节点基名，不含路径分隔符
//   - 目录：IsDir=true，SizeBytes=0，MimeType 为空
//
// (StorageID, Path) 在未删除行中唯一，由写入方查重保证
type FsNode struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	StorageID uint           `json:"storage_id" gorm:"index:idx_fs_nodes_storage_path;not null"`
	Path      string         `json:"path" gorm:"type:varchar(1024);index:idx_fs_nodes_storage_path;not null"`
	Name      string         `json:"name" gorm:"type:varchar(255);index;not null"`
	IsDir     bool           `json:"is_dir" gorm:"index;default:false"`
	SizeBytes int64          `json:"size_bytes" gorm:"default:0"`
	MimeType  string         `json:"mime_type" gorm:"type:varchar(255)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
