package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"filehub-manager/models"
	"filehub-manager/services"
)

type StorageHandler struct {
	storage *services.StorageService
}

func NewStorageHandler(storage *services.StorageService) *StorageHandler {
	return &StorageHandler{storage: storage}
}

// List 存储源列表（带探活状态）
// GET /api/storages
func (h *StorageHandler) List(c *gin.Context) {
	statuses, err := h.storage.List(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    statuses,
	})
}

// Create 新建存储源
// POST /api/storages
func (h *StorageHandler) Create(c *gin.Context) {
	var req models.StorageConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	cfg, err := h.storage.Create(&req)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "存储源已创建",
		"data":    cfg,
	})
}

// Update 更新存储源
// PUT /api/storages/:id
func (h *StorageHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "无效的存储源ID")
		return
	}
	var req models.StorageConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	cfg, err := h.storage.Update(uint(id), &req)
	if err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "存储源已更新",
		"data":    cfg,
	})
}

// Delete 删除存储源（软删配置行，不碰底层数据）
// DELETE /api/storages/:id
func (h *StorageHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "无效的存储源ID")
		return
	}
	if err := h.storage.Delete(uint(id)); err != nil {
		failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "存储源已删除",
	})
}

// Test 连通性测试，不落库
// POST /api/storages/test
func (h *StorageHandler) Test(c *gin.Context) {
	var req models.StorageConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	if err := h.storage.TestConnection(c.Request.Context(), &req); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "连接失败: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "连接正常",
	})
}
