package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"filehub-manager/config"
	"filehub-manager/database"
	"filehub-manager/handlers"
	"filehub-manager/middleware"
	"filehub-manager/services"
)

func main() {
	// 初始化数据库
	database.InitDB()

	cfg := config.GetConfig()
	fsCfg := config.LoadFileStorageConfig()
	presignExpire := time.Duration(fsCfg.PresignExpireSeconds) * time.Second

	// 组装服务
	indexService := services.NewIndexService(database.DB)
	fileService := services.NewFileService(database.DB, indexService, fsCfg)
	clipboardService := services.NewClipboardService(fileService)
	journalService := services.NewJournalService(database.DB, indexService)
	syncService := services.NewSyncService(database.DB, fileService, indexService)
	storageService := services.NewStorageService(database.DB, presignExpire)
	oplogService := services.NewOperationLogService(database.DB)

	// 默认本地存储与启动时的变更日志导入
	if _, err := storageService.BootstrapDefaultLocal(fsCfg.LocalFileRoot); err != nil {
		log.Printf("初始化默认本地存储失败: %v", err)
	}
	for storageID, stats := range journalService.ImportAll() {
		if stats != nil && stats.Lines > 0 {
			log.Printf("变更日志导入完成 storage=%d lines=%d imported=%d skipped=%d failed=%d",
				storageID, stats.Lines, stats.Imported, stats.Skipped, stats.Failed)
		}
	}

	fileHandler := handlers.NewFileHandler(fileService, clipboardService, journalService, syncService, oplogService)
	storageHandler := handlers.NewStorageHandler(storageService)
	logHandler := handlers.NewLogHandler(oplogService)

	// 创建 Gin 路由
	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())

	// CORS 配置
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true, // 允许所有来源（仅开发环境）
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 公开接口
	public := r.Group("/api")
	{
		public.POST("/login", handlers.Login)
		public.POST("/register", handlers.Register)
	}

	// 需要认证的接口
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/me", handlers.GetCurrentUser)

		// 存储源管理，修改类操作仅限管理员
		api.GET("/storages", storageHandler.List)
		admin := api.Group("")
		admin.Use(middleware.AdminRequired())
		{
			admin.POST("/storages", storageHandler.Create)
			admin.PUT("/storages/:id", storageHandler.Update)
			admin.DELETE("/storages/:id", storageHandler.Delete)
			admin.POST("/storages/test", storageHandler.Test)
		}

		// 文件管理
		api.GET("/files", fileHandler.List)
		api.POST("/files", middleware.RateLimit(120), fileHandler.Upload)
		api.GET("/files/download", fileHandler.Download)
		api.GET("/files/preview", fileHandler.Preview)
		api.PATCH("/files", fileHandler.Rename)
		api.DELETE("/files", fileHandler.Delete)
		api.POST("/files/move", fileHandler.Move)
		api.POST("/files/copy", fileHandler.Copy)
		api.POST("/files/sync", fileHandler.Sync)
		api.POST("/folders", fileHandler.CreateFolder)

		// 剪贴板
		api.POST("/files/clipboard", fileHandler.ClipboardSet)
		api.GET("/files/clipboard", fileHandler.ClipboardGet)
		api.DELETE("/files/clipboard", fileHandler.ClipboardClear)
		api.POST("/files/paste", fileHandler.Paste)

		// 操作日志
		api.GET("/logs/operations", logHandler.Operations)
	}

	log.Printf("服务启动于 :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("服务启动失败: %v", err)
	}
}
