package services

import (
	"context"
	"sync"
	"time"
)

// ClipboardEntry 单个用户的剪贴板内容
type ClipboardEntry struct {
	Action    string    `json:"action"` // copy | cut
	StorageID uint      `json:"storageId"`
	Paths     []string  `json:"paths"`
	Ts        time.Time `json:"ts"`
}

const (
	ClipboardCopy = "copy"
	ClipboardCut  = "cut"
)

// ClipboardService 进程内剪贴板，按用户隔离。
// Set 整体覆盖，不做追加；粘贴时校验存储一致性。
type ClipboardService struct {
	mu      sync.RWMutex
	entries map[uint]*ClipboardEntry
	files   *FileService
}

func NewClipboardService(files *FileService) *ClipboardService {
	return &ClipboardService{
		entries: make(map[uint]*ClipboardEntry),
		files:   files,
	}
}

// Set 写入剪贴板，路径逐一规范化，非法路径整体拒绝
func (s *ClipboardService) Set(userID uint, action string, storageID uint, paths []string) error {
	if action != ClipboardCopy && action != ClipboardCut {
		return ErrInvalidPath
	}
	if len(paths) == 0 {
		return ErrInvalidPath
	}
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		np, err := NormalizePath(p)
		if err != nil {
			return err
		}
		cleaned = append(cleaned, np)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = &ClipboardEntry{
		Action: action, StorageID: storageID, Paths: cleaned, Ts: time.Now(),
	}
	return nil
}

// Get 返回当前剪贴板内容的副本，空剪贴板返回 nil
func (s *ClipboardService) Get(userID uint) *ClipboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[userID]
	if !ok {
		return nil
	}
	cp := *entry
	cp.Paths = append([]string(nil), entry.Paths...)
	return &cp
}

// Clear 清空剪贴板，幂等
func (s *ClipboardService) Clear(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Paste 将剪贴板内容落到目标目录。跨存储在任何后端调用前就拒绝。
// clearAfter 对 copy 和 cut 一视同仁：为真则粘贴后清空剪贴板。
func (s *ClipboardService) Paste(ctx context.Context, userID uint, storageID uint, destinationPath string, clearAfter bool) ([]OpResult, error) {
	entry := s.Get(userID)
	if entry == nil {
		return nil, ErrInvalidPath
	}
	if entry.StorageID != storageID {
		return nil, ErrCrossStorage
	}
	dest, err := NormalizePath(destinationPath)
	if err != nil {
		return nil, err
	}

	var results []OpResult
	if entry.Action == ClipboardCut {
		results, err = s.files.Move(ctx, storageID, entry.Paths, dest)
	} else {
		results, err = s.files.Copy(ctx, storageID, entry.Paths, dest)
	}
	if err != nil {
		return nil, err
	}

	if clearAfter {
		s.Clear(userID)
	}
	return results, nil
}
