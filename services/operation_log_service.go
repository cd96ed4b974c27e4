package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"filehub-manager/models"
)

// OperationLogService 操作日志的写入与查询
type OperationLogService struct {
	db *gorm.DB
}

func NewOperationLogService(db *gorm.DB) *OperationLogService {
	return &OperationLogService{db: db}
}

// Record 落一条操作日志，失败只打日志不影响主流程
func (s *OperationLogService) Record(entry *models.OperationLog) {
	if entry.OperateTime.IsZero() {
		entry.OperateTime = time.Now()
	}
	if err := s.db.Create(entry).Error; err != nil {
		log.Printf("写操作日志失败: %v", err)
	}
}

// OperationLogQuery 操作日志查询参数
type OperationLogQuery struct {
	Module string
	Status string
	Page   int
	Size   int
}

// List 分页查询操作日志，时间倒序
func (s *OperationLogService) List(q OperationLogQuery) ([]models.OperationLog, int64, error) {
	tx := s.db.Model(&models.OperationLog{})
	if q.Module != "" {
		tx = tx.Where("module = ?", q.Module)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	size := q.Size
	if size <= 0 || size > 200 {
		size = 20
	}
	var logs []models.OperationLog
	err := tx.Order("operate_time DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&logs).Error
	return logs, total, err
}
