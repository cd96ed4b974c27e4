package services

import "errors"

// 文件存储核心错误分类。handlers 层用 errors.Is 将其映射为 HTTP 状态码。
var (
	ErrInvalidPath        = errors.New("invalid path")
	ErrPathNotFound       = errors.New("path not found")
	ErrDestinationExists  = errors.New("destination already exists")
	ErrCrossStorage       = errors.New("clipboard storage does not match target storage")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	ErrConfigInvalid      = errors.New("storage config invalid")
	ErrInvalidCursor      = errors.New("invalid page cursor")
	ErrInvalidQuery       = errors.New("invalid list query")
)
