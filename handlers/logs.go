package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"filehub-manager/services"
)

type LogHandler struct {
	oplog *services.OperationLogService
}

func NewLogHandler(oplog *services.OperationLogService) *LogHandler {
	return &LogHandler{oplog: oplog}
}

// Operations 操作日志列表
// GET /api/logs/operations?module=file&status=failure&page=1&size=20
func (h *LogHandler) Operations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	logs, total, err := h.oplog.List(services.OperationLogQuery{
		Module: c.Query("module"),
		Status: c.Query("status"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"list":  logs,
			"total": total,
		},
	})
}
