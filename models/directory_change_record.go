package models

import (
	"time"

	"gorm.io/gorm"
)

// 目录变更动作
const (
	ChangeActionCreate = "create"
	ChangeActionRename = "rename"
	ChangeActionMove   = "move"
	ChangeActionDelete = "delete"
	ChangeActionCopy   = "copy"
)

// DirectoryChangeRecord 本地目录变更记录：由外部工具直接操作 LOCAL 根目录后
// 追加到 .dir_ops.jsonl，再由导入器落库。
// (StorageID, Action, PathOld, PathNew, OperateTime) 在未删除行中唯一，
// 重复导入同一行日志是空操作。
type DirectoryChangeRecord struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	StorageID   uint           `json:"storage_id" gorm:"index;not null"`
	Action      string         `json:"action" gorm:"type:varchar(32);not null"`
	PathOld     *string        `json:"path_old" gorm:"type:varchar(1024)"`
	PathNew     *string        `json:"path_new" gorm:"type:varchar(1024)"`
	OperateTime time.Time      `json:"operate_time" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
