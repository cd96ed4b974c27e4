package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"filehub-manager/config"
	"filehub-manager/models"
)

// FileService 文件操作编排层：先打后端，成功后再写索引。
// 后端是事实来源，索引只是它的镜像。
type FileService struct {
	db    *gorm.DB
	index *IndexService
	fsCfg *config.FileStorageConfig
}

func NewFileService(db *gorm.DB, index *IndexService, fsCfg *config.FileStorageConfig) *FileService {
	return &FileService{db: db, index: index, fsCfg: fsCfg}
}

// getBackend 取存储配置并构建对应后端
func (s *FileService) getBackend(storageID uint) (StorageBackend, *models.StorageConfig, error) {
	var cfg models.StorageConfig
	if err := s.db.First(&cfg, storageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: storage %d", ErrConfigInvalid, storageID)
		}
		return nil, nil, err
	}
	backend, err := BuildBackend(&cfg, time.Duration(s.fsCfg.PresignExpireSeconds)*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return backend, &cfg, nil
}

// List 目录列表，数据来自索引而不是实时扫后端
func (s *FileService) List(storageID uint, path string, q ListQuery) (*PageResult, error) {
	return s.index.ListPage(storageID, path, q)
}

// UploadResult 单个文件的上传结果
type UploadResult struct {
	Name       string `json:"name"`
	StoredName string `json:"storedName"`
	Path       string `json:"path,omitempty"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// Upload 批量上传。重名按 name(N).ext 规则改名，
// 已占用名字来自后端实时列表加上本批次已分配的名字。
func (s *FileService) Upload(ctx context.Context, storageID uint, dir string, files []*multipart.FileHeader) ([]UploadResult, error) {
	backend, _, err := s.getBackend(storageID)
	if err != nil {
		return nil, err
	}
	dir, err = NormalizePath(dir)
	if err != nil {
		return nil, err
	}

	taken := map[string]struct{}{}
	if listing, err := backend.List(ctx, dir, ListOptions{}); err == nil {
		for _, item := range listing.Items {
			taken[item.Name] = struct{}{}
		}
	} else if !errors.Is(err, ErrPathNotFound) {
		return nil, err
	}

	results := make([]UploadResult, 0, len(files))
	for _, fh := range files {
		original := SanitizeName(fh.Filename)
		if original == "" {
			results = append(results, UploadResult{
				Name: fh.Filename, Status: OpStatusFailure, Message: "文件名不合法",
			})
			continue
		}
		stored := ResolveCollision(original, taken, false)
		result := s.uploadOne(ctx, backend, storageID, dir, original, stored, fh)
		if result.Status == OpStatusSuccess {
			taken[stored] = struct{}{}
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *FileService) uploadOne(ctx context.Context, backend StorageBackend, storageID uint, dir, original, stored string, fh *multipart.FileHeader) UploadResult {
	src, err := fh.Open()
	if err != nil {
		return UploadResult{Name: original, StoredName: stored, Status: OpStatusFailure, Message: "读取上传内容失败"}
	}
	defer src.Close()

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mimeByName(stored)
	}
	if err := backend.Write(ctx, dir, stored, src, fh.Size, mimeType); err != nil {
		msg := "写入存储失败"
		if errors.Is(err, ErrDestinationExists) {
			msg = "目标已存在同名文件"
		}
		return UploadResult{Name: original, StoredName: stored, Status: OpStatusFailure, Message: msg}
	}

	fullPath := JoinPath(dir, stored)
	if err := s.index.UpsertFile(storageID, fullPath, fh.Size, mimeType); err != nil {
		log.Printf("上传后写索引失败 storage=%d path=%s: %v", storageID, fullPath, err)
	}
	record := models.FileRecord{
		FileID:       uuid.NewString(),
		StorageID:    storageID,
		Directory:    DirKey(dir),
		OriginalName: original,
		AliasName:    stored,
		SizeBytes:    fh.Size,
		MimeType:     mimeType,
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("写文件台账失败 storage=%d name=%s: %v", storageID, stored, err)
	}
	return UploadResult{Name: original, StoredName: stored, Path: fullPath, Status: OpStatusSuccess}
}

// Resolve 取下载/预览地址。后端报 404 时把索引里的陈旧节点软删掉再返回错误，
// 下一次列表就不会再出现这条幽灵记录。
func (s *FileService) Resolve(ctx context.Context, storageID uint, path string, download bool) (*ResolvedURL, error) {
	backend, _, err := s.getBackend(storageID)
	if err != nil {
		return nil, err
	}
	path, err = NormalizePath(path)
	if err != nil {
		return nil, err
	}
	resolved, err := backend.ResolveURL(ctx, path, download)
	if errors.Is(err, ErrPathNotFound) {
		if derr := s.index.DeleteSubtree(storageID, path); derr != nil {
			log.Printf("清理陈旧索引失败 storage=%d path=%s: %v", storageID, path, derr)
		}
		return nil, err
	}
	return resolved, err
}

// CreateFolder 新建目录，重名按 name(N) 规则改名，返回最终路径
func (s *FileService) CreateFolder(ctx context.Context, storageID uint, parent, name string) (string, error) {
	backend, _, err := s.getBackend(storageID)
	if err != nil {
		return "", err
	}
	parent, err = NormalizePath(parent)
	if err != nil {
		return "", err
	}
	name = SanitizeName(name)
	if name == "" {
		return "", ErrInvalidPath
	}

	taken := map[string]struct{}{}
	if listing, err := backend.List(ctx, parent, ListOptions{}); err == nil {
		for _, item := range listing.Items {
			taken[item.Name] = struct{}{}
		}
	} else if !errors.Is(err, ErrPathNotFound) {
		return "", err
	}
	final := ResolveCollision(name, taken, true)

	if err := backend.MkDir(ctx, parent, final); err != nil {
		return "", err
	}
	fullPath := JoinPath(parent, final)
	if err := s.index.EnsureDir(storageID, fullPath); err != nil {
		log.Printf("建目录后写索引失败 storage=%d path=%s: %v", storageID, fullPath, err)
	}
	return fullPath, nil
}

// Rename 改名/搬移，源不存在 404，目标已存在 409
func (s *FileService) Rename(ctx context.Context, storageID uint, oldPath, newPath string) error {
	backend, _, err := s.getBackend(storageID)
	if err != nil {
		return err
	}
	oldPath, err = NormalizePath(oldPath)
	if err != nil {
		return err
	}
	newPath, err = NormalizePath(newPath)
	if err != nil {
		return err
	}
	if oldPath == newPath {
		return nil
	}
	if err := backend.Rename(ctx, oldPath, newPath); err != nil {
		return err
	}
	if err := s.index.RenameSubtree(storageID, oldPath, newPath); err != nil {
		log.Printf("改名后写索引失败 storage=%d %s -> %s: %v", storageID, oldPath, newPath, err)
	}
	return nil
}

// Move 批量移动，逐项返回结果，索引只跟进成功项
func (s *FileService) Move(ctx context.Context, storageID uint, sourcePaths []string, destinationPath string) ([]OpResult, error) {
	return s.relocate(ctx, storageID, sourcePaths, destinationPath, true)
}

// Copy 批量复制，逐项返回结果，索引只跟进成功项
func (s *FileService) Copy(ctx context.Context, storageID uint, sourcePaths []string, destinationPath string) ([]OpResult, error) {
	return s.relocate(ctx, storageID, sourcePaths, destinationPath, false)
}

func (s *FileService) relocate(ctx context.Context, storageID uint, sourcePaths []string, destinationPath string, deleteSource bool) ([]OpResult, error) {
	backend, _, err := s.getBackend(storageID)
	if err != nil {
		return nil, err
	}
	dest, err := NormalizePath(destinationPath)
	if err != nil {
		return nil, err
	}
	cleaned := make([]string, 0, len(sourcePaths))
	for _, p := range sourcePaths {
		np, err := NormalizePath(p)
		if err != nil {
			return nil, err
		}
		cleaned = append(cleaned, np)
	}

	var results []OpResult
	if deleteSource {
		results = backend.Move(ctx, cleaned, dest)
	} else {
		results = backend.Copy(ctx, cleaned, dest)
	}
	for _, r := range results {
		if r.Status != OpStatusSuccess {
			continue
		}
		_, name := SplitPath(r.Path)
		target := JoinPath(dest, name)
		var ierr error
		if deleteSource {
			ierr = s.index.RenameSubtree(storageID, r.Path, target)
		} else {
			ierr = s.index.CopySubtree(storageID, r.Path, target)
		}
		if ierr != nil {
			log.Printf("批量操作后写索引失败 storage=%d %s -> %s: %v", storageID, r.Path, target, ierr)
		}
	}
	return results, nil
}

// Delete 批量删除，逐项返回结果。台账 file_records 只增不删，保留审计。
func (s *FileService) Delete(ctx context.Context, storageID uint, paths []string) ([]OpResult, error) {
	backend, _, err := s.getBackend(storageID)
	if err != nil {
		return nil, err
	}
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		np, err := NormalizePath(p)
		if err != nil {
			return nil, err
		}
		cleaned = append(cleaned, np)
	}
	results := backend.Delete(ctx, cleaned)
	for _, r := range results {
		if r.Status != OpStatusSuccess {
			continue
		}
		if err := s.index.DeleteSubtree(storageID, r.Path); err != nil {
			log.Printf("删除后写索引失败 storage=%d path=%s: %v", storageID, r.Path, err)
		}
	}
	return results, nil
}
