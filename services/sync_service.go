package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"filehub-manager/models"
)

// SyncStats 单次索引同步的统计
type SyncStats struct {
	Scanned int `json:"scanned"`
	Files   int `json:"files"`
	Dirs    int `json:"dirs"`
	Pruned  int `json:"pruned"`
}

// SyncService 全量对账：按后端实时列表重建索引。
// 只有 LOCAL 存储才清理走丢的索引行；S3 列表可能有延迟，
// 看不见不代表不存在，漂移靠显式同步和 404 时的就地清理兜底。
type SyncService struct {
	db    *gorm.DB
	files *FileService
	index *IndexService
}

func NewSyncService(db *gorm.DB, files *FileService, index *IndexService) *SyncService {
	return &SyncService{db: db, files: files, index: index}
}

// SyncStorage 递归扫描存储并回填 fs_nodes 与 file_records
func (s *SyncService) SyncStorage(ctx context.Context, storageID uint) (*SyncStats, error) {
	backend, cfg, err := s.files.getBackend(storageID)
	if err != nil {
		return nil, err
	}
	stats := &SyncStats{}
	visited := make(map[string]struct{})
	if err := s.walk(ctx, backend, storageID, "/", visited, stats); err != nil {
		return stats, err
	}
	if cfg.Kind == models.StorageKindLocal {
		if err := s.prune(storageID, visited, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *SyncService) walk(ctx context.Context, backend StorageBackend, storageID uint, dir string, visited map[string]struct{}, stats *SyncStats) error {
	listing, err := backend.List(ctx, dir, ListOptions{})
	if err != nil {
		if errors.Is(err, ErrPathNotFound) {
			return nil
		}
		return err
	}
	for _, item := range listing.Items {
		full := JoinPath(dir, item.Name)
		visited[full] = struct{}{}
		stats.Scanned++
		if item.Type == EntryTypeDirectory {
			if err := s.index.EnsureDir(storageID, full); err != nil {
				return err
			}
			stats.Dirs++
			if err := s.walk(ctx, backend, storageID, full, visited, stats); err != nil {
				return err
			}
			continue
		}
		if err := s.index.UpsertFile(storageID, full, item.Size, item.MimeType); err != nil {
			return err
		}
		stats.Files++
		s.ensureRecord(storageID, dir, item)
	}
	return nil
}

// ensureRecord 为扫描发现的文件补一条台账，已有同名记录则不动
func (s *SyncService) ensureRecord(storageID uint, dir string, item ListEntry) {
	var count int64
	err := s.db.Model(&models.FileRecord{}).
		Where("storage_id = ? AND directory = ? AND alias_name = ?", storageID, DirKey(dir), item.Name).
		Count(&count).Error
	if err != nil || count > 0 {
		return
	}
	record := models.FileRecord{
		FileID:       uuid.NewString(),
		StorageID:    storageID,
		Directory:    DirKey(dir),
		OriginalName: item.Name,
		AliasName:    item.Name,
		Purpose:      "sync",
		SizeBytes:    item.Size,
		MimeType:     item.MimeType,
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("同步补台账失败 storage=%d name=%s: %v", storageID, item.Name, err)
	}
}

// prune 软删本次扫描没见到的索引行
func (s *SyncService) prune(storageID uint, visited map[string]struct{}, stats *SyncStats) error {
	var nodes []models.FsNode
	if err := s.db.Where("storage_id = ?", storageID).Find(&nodes).Error; err != nil {
		return err
	}
	for i := range nodes {
		if _, ok := visited[nodes[i].Path]; ok {
			continue
		}
		if err := s.db.Delete(&nodes[i]).Error; err != nil {
			return err
		}
		stats.Pruned++
	}
	return nil
}
