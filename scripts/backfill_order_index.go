// 按标题序号一次性回填 lessons.order_index
//
// 已有完整 orderIndex 的课程不会被改动，可重复执行。
// 首次部署或导入旧课程数据后运行。
//
// 用法: go run scripts/backfill_order_index.go

package main

import (
	"context"
	"log"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/service"
	"artiefy_backend/pkg/database"
	"artiefy_backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	lessons := service.NewLessonService(repository.NewCourseRepository(db))

	logger.Log.Info("backfilling lesson order_index")
	updated, err := lessons.BackfillAll(context.Background())
	if err != nil {
		logger.Log.Fatal("backfill failed", zap.Int("updated", updated), zap.Error(err))
	}
	logger.Log.Info("backfill finished", zap.Int("updated", updated))
}
