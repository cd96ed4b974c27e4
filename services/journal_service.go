package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"filehub-manager/models"
)

// 变更日志文件名，位于 LOCAL 存储根目录下
const journalFileName = ".dir_ops.jsonl"

// journalLine 日志文件中的一行
type journalLine struct {
	Action      string  `json:"action"`
	PathOld     *string `json:"path_old"`
	PathNew     *string `json:"path_new"`
	OperateTime string  `json:"operate_time"`
}

// JournalStats 单次导入的统计
type JournalStats struct {
	Lines    int `json:"lines"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// JournalService 导入外部工具写下的目录变更日志。
// 五元组 (storage_id, action, path_old, path_new, operate_time) 唯一，
// 重复导入是空操作；坏行跳过不中断。
type JournalService struct {
	db    *gorm.DB
	index *IndexService
}

func NewJournalService(db *gorm.DB, index *IndexService) *JournalService {
	return &JournalService{db: db, index: index}
}

// ImportAll 扫描所有 LOCAL 存储并导入各自的变更日志
func (s *JournalService) ImportAll() map[uint]*JournalStats {
	var configs []models.StorageConfig
	if err := s.db.Where("kind = ?", models.StorageKindLocal).Find(&configs).Error; err != nil {
		log.Printf("查询 LOCAL 存储失败: %v", err)
		return nil
	}
	all := make(map[uint]*JournalStats, len(configs))
	for _, cfg := range configs {
		stats, err := s.ImportStorage(&cfg)
		if err != nil {
			log.Printf("导入变更日志失败 storage=%d: %v", cfg.ID, err)
			continue
		}
		all[cfg.ID] = stats
	}
	return all
}

// ImportStorage 导入单个 LOCAL 存储的变更日志，文件不存在时视为空日志
func (s *JournalService) ImportStorage(cfg *models.StorageConfig) (*JournalStats, error) {
	stats := &JournalStats{}
	journalPath := filepath.Join(cfg.LocalRootPath, journalFileName)
	f, err := os.Open(journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		stats.Lines++

		var line journalLine
		if err := json.Unmarshal(raw, &line); err != nil {
			log.Printf("变更日志坏行 storage=%d line=%d: %v", cfg.ID, stats.Lines, err)
			stats.Skipped++
			continue
		}
		operateTime, err := parseJournalTime(line.OperateTime)
		if err != nil {
			// 时间解析失败无法保证幂等，整行跳过
			log.Printf("变更日志时间无法解析 storage=%d line=%d: %q", cfg.ID, stats.Lines, line.OperateTime)
			stats.Skipped++
			continue
		}
		if !validJournalLine(line) {
			stats.Skipped++
			continue
		}

		imported, err := s.importLine(cfg.ID, line, operateTime)
		if err != nil {
			log.Printf("变更日志应用失败 storage=%d line=%d action=%s: %v", cfg.ID, stats.Lines, line.Action, err)
			stats.Failed++
			continue
		}
		if imported {
			stats.Imported++
		} else {
			stats.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// importLine 查重后落库并应用到索引，返回是否新导入
func (s *JournalService) importLine(storageID uint, line journalLine, operateTime time.Time) (bool, error) {
	tx := s.db.Model(&models.DirectoryChangeRecord{}).
		Where("storage_id = ? AND action = ? AND operate_time = ?", storageID, line.Action, operateTime)
	tx = whereNullable(tx, "path_old", line.PathOld)
	tx = whereNullable(tx, "path_new", line.PathNew)
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	record := models.DirectoryChangeRecord{
		StorageID:   storageID,
		Action:      line.Action,
		PathOld:     line.PathOld,
		PathNew:     line.PathNew,
		OperateTime: operateTime,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return false, err
	}
	if err := s.apply(storageID, line); err != nil {
		return true, err
	}
	return true, nil
}

// apply 把变更落到索引
func (s *JournalService) apply(storageID uint, line journalLine) error {
	switch line.Action {
	case models.ChangeActionCreate:
		return s.index.EnsureDir(storageID, *line.PathNew)
	case models.ChangeActionRename, models.ChangeActionMove:
		return s.index.RenameSubtree(storageID, *line.PathOld, *line.PathNew)
	case models.ChangeActionDelete:
		return s.index.DeleteSubtree(storageID, *line.PathOld)
	case models.ChangeActionCopy:
		return s.index.CopySubtree(storageID, *line.PathOld, *line.PathNew)
	}
	return errors.New("unknown journal action: " + line.Action)
}

// validJournalLine 校验动作与必填路径，路径必须能通过规范化
func validJournalLine(line journalLine) bool {
	normalize := func(p *string) bool {
		if p == nil {
			return false
		}
		np, err := NormalizePath(*p)
		if err != nil {
			return false
		}
		*p = np
		return true
	}
	switch line.Action {
	case models.ChangeActionCreate:
		return normalize(line.PathNew)
	case models.ChangeActionRename, models.ChangeActionMove, models.ChangeActionCopy:
		return normalize(line.PathOld) && normalize(line.PathNew)
	case models.ChangeActionDelete:
		return normalize(line.PathOld)
	}
	return false
}

func whereNullable(tx *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return tx.Where(column + " IS NULL")
	}
	return tx.Where(column+" = ?", *value)
}

// parseJournalTime 兼容 RFC3339 与无时区的秒级时间
func parseJournalTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized time: " + s)
}
