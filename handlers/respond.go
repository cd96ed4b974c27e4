package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filehub-manager/services"
)

// failWith 把服务层错误映射成 HTTP 状态码并返回统一结构
func failWith(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidPath),
		errors.Is(err, services.ErrCrossStorage),
		errors.Is(err, services.ErrConfigInvalid),
		errors.Is(err, services.ErrInvalidCursor),
		errors.Is(err, services.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrPathNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrDestinationExists):
		status = http.StatusConflict
	case errors.Is(err, services.ErrBackendUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"success": false,
		"message": err.Error(),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": message,
	})
}
