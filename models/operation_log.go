package models

import (
	"time"
)

// OperationLog 文件管理变更类接口的操作日志。
// 查询类接口（列表/下载/预览/剪贴板读取）不记录，避免日志噪音。
type OperationLog struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Module       string    `json:"module" gorm:"type:varchar(64)"`
	BusinessType string    `json:"business_type" gorm:"type:varchar(32)"` // create, update, delete, other
	OperatorName string    `json:"operator_name" gorm:"type:varchar(64)"`
	OperatorIP   string    `json:"operator_ip" gorm:"type:varchar(64)"`
	RequestURI   string    `json:"request_uri" gorm:"type:varchar(512)"`
	Method       string    `json:"method" gorm:"type:varchar(16)"`
	Params       string    `json:"params" gorm:"type:text"`
	Status       string    `json:"status" gorm:"type:varchar(16)"` // success, failure
	ErrorMessage string    `json:"error_message" gorm:"type:text"`
	CostMs       int64     `json:"cost_ms"`
	OperateTime  time.Time `json:"operate_time"`
	CreatedAt    time.Time `json:"created_at"`
}
