package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"filehub-manager/config"
	"filehub-manager/models"
)

var DB *gorm.DB

// InitDB 初始化数据库
func InitDB() {
	var err error

	// 使用配置中的数据库路径，而不是硬编码
	dbPath := config.GetConfig().DBPath

	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// 自动迁移数据库结构
	err = DB.AutoMigrate(
		&models.User{},
		&models.StorageConfig{},
		&models.FsNode{},
		&models.FileRecord{},
		&models.DirectoryChangeRecord{},
		&models.OperationLog{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// 历史数据补默认值
	DB.Model(&models.StorageConfig{}).Where("acl_type IS NULL OR acl_type = ''").Update("acl_type", models.ACLPrivate)
	DB.Model(&models.FileRecord{}).Where("purpose IS NULL OR purpose = ''").Update("purpose", "general")

	log.Printf("Database initialized successfully at: %s", dbPath)
}
