package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalBackend 本地文件系统后端
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) (*LocalBackend, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: local root path is empty", ErrConfigInvalid)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create local root: %v", ErrBackendUnavailable, err)
	}
	return &LocalBackend{root: abs}, nil
}

func (b *LocalBackend) Kind() string { return "LOCAL" }

// resolve 将逻辑路径安全地拼到根目录下，防止路径遍历
func (b *LocalBackend) resolve(logical string) (string, error) {
	norm, err := NormalizePath(logical)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(b.root, filepath.FromSlash(strings.TrimPrefix(norm, "/")))
	if abs != b.root && !strings.HasPrefix(abs, b.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes storage root", ErrInvalidPath, logical)
	}
	return abs, nil
}

func (b *LocalBackend) List(ctx context.Context, path string, opts ListOptions) (*ListResult, error) {
	dir, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrapFsErr(err)
	}

	norm, _ := NormalizePath(path)
	result := &ListResult{CurrentPath: norm}
	for _, entry := range entries {
		name := entry.Name()
		if !matchSearch(name, opts.Search) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if entry.IsDir() {
			result.Items = append(result.Items, ListEntry{
				Name: name, Type: EntryTypeDirectory, Size: 0, LastModified: &mod,
			})
			continue
		}
		if !matchFileType(name, opts.FileType) {
			continue
		}
		result.Items = append(result.Items, ListEntry{
			Name: name, Type: EntryTypeFile, MimeType: mimeByName(name),
			Size: info.Size(), LastModified: &mod,
		})
	}
	// 目录在前，同类按名称排序
	sort.SliceStable(result.Items, func(i, j int) bool {
		if result.Items[i].Type != result.Items[j].Type {
			return result.Items[i].Type == EntryTypeDirectory
		}
		return strings.ToLower(result.Items[i].Name) < strings.ToLower(result.Items[j].Name)
	})
	return result, nil
}

func (b *LocalBackend) Stat(ctx context.Context, path string) (*StatInfo, error) {
	abs, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, wrapFsErr(err)
	}
	mod := info.ModTime()
	st := &StatInfo{IsDir: info.IsDir(), ModTime: &mod}
	if !info.IsDir() {
		st.Size = info.Size()
		st.MimeType = mimeByName(info.Name())
	}
	return st, nil
}

func (b *LocalBackend) Write(ctx context.Context, dir, name string, content io.Reader, size int64, mimeType string) error {
	absDir, err := b.resolve(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return wrapFsErr(err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %q is not a directory", ErrInvalidPath, dir)
	}
	dst := filepath.Join(absDir, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, name)
		}
		return wrapFsErr(err)
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		os.Remove(dst)
		return fmt.Errorf("%w: write failed: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *LocalBackend) MkDir(ctx context.Context, parent, name string) error {
	absParent, err := b.resolve(parent)
	if err != nil {
		return err
	}
	info, err := os.Stat(absParent)
	if err != nil {
		return wrapFsErr(err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %q is not a directory", ErrInvalidPath, parent)
	}
	if err := os.Mkdir(filepath.Join(absParent, name), 0o755); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, name)
		}
		return wrapFsErr(err)
	}
	return nil
}

func (b *LocalBackend) Rename(ctx context.Context, oldPath, newPath string) error {
	src, err := b.resolve(oldPath)
	if err != nil {
		return err
	}
	dst, err := b.resolve(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return wrapFsErr(err)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, newPath)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return wrapFsErr(err)
	}
	if err := os.Rename(src, dst); err != nil {
		return wrapFsErr(err)
	}
	return nil
}

func (b *LocalBackend) Move(ctx context.Context, sourcePaths []string, destinationPath string) []OpResult {
	return b.relocate(ctx, sourcePaths, destinationPath, true)
}

func (b *LocalBackend) Copy(ctx context.Context, sourcePaths []string, destinationPath string) []OpResult {
	return b.relocate(ctx, sourcePaths, destinationPath, false)
}

// relocate 批量搬移/复制，逐项上报，单项失败不中断
func (b *LocalBackend) relocate(ctx context.Context, sourcePaths []string, destinationPath string, deleteSource bool) []OpResult {
	results := make([]OpResult, 0, len(sourcePaths))
	dstDir, err := b.resolve(destinationPath)
	if err != nil {
		for _, p := range sourcePaths {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "目标路径非法"})
		}
		return results
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		for _, p := range sourcePaths {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "目标目录不可用"})
		}
		return results
	}

	for _, p := range sourcePaths {
		src, err := b.resolve(p)
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "源路径非法"})
			continue
		}
		info, err := os.Stat(src)
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "源路径不存在"})
			continue
		}
		dst := filepath.Join(dstDir, filepath.Base(src))
		if _, err := os.Stat(dst); err == nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "目标已存在同名项"})
			continue
		}
		if deleteSource {
			err = os.Rename(src, dst)
		} else if info.IsDir() {
			err = copyTree(src, dst)
		} else {
			err = copyFile(src, dst)
		}
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "操作失败：" + err.Error()})
			continue
		}
		results = append(results, OpResult{Path: p, Status: OpStatusSuccess})
	}
	return results
}

func (b *LocalBackend) Delete(ctx context.Context, paths []string) []OpResult {
	results := make([]OpResult, 0, len(paths))
	for _, p := range paths {
		abs, err := b.resolve(p)
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "路径非法"})
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "路径不存在"})
			continue
		}
		if info.IsDir() {
			err = os.RemoveAll(abs)
		} else {
			err = os.Remove(abs)
		}
		if err != nil {
			results = append(results, OpResult{Path: p, Status: OpStatusFailure, Message: "删除失败：" + err.Error()})
			continue
		}
		results = append(results, OpResult{Path: p, Status: OpStatusSuccess})
	}
	return results
}

func (b *LocalBackend) ResolveURL(ctx context.Context, path string, download bool) (*ResolvedURL, error) {
	abs, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, wrapFsErr(err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %q is a directory", ErrInvalidPath, path)
	}
	return &ResolvedURL{
		Mode:     URLModeStream,
		FilePath: abs,
		FileName: info.Name(),
		MimeType: mimeByName(info.Name()),
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

// wrapFsErr 将文件系统错误归到错误分类
func wrapFsErr(err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrPathNotFound, err)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
