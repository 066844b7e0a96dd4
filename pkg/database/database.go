package database

import (
	"artiefy_backend/internal/config"
	"artiefy_backend/internal/model"
	applog "artiefy_backend/pkg/logger"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go.uber.org/zap"
)

// Dialector 根据 driver 构造 gorm 方言
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.DBName), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, err
	}

	applog.Log.Info("Database connection established", zap.String("driver", cfg.Driver))

	if !migrate {
		return db, nil
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	applog.Log.Info("Database migration completed")
	return db, nil
}

// Migrate 建表并写入默认数据
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Enrollment{},
		&model.Lesson{},
		&model.ActivityType{},
		&model.Activity{},
		&model.UserLessonProgress{},
		&model.UserActivityProgress{},
		&model.Parametro{},
		&model.ParameterGrade{},
		&model.Program{},
		&model.Materia{},
		&model.MateriaGrade{},
		&model.Certificate{},
	)
	if err != nil {
		return err
	}

	// 默认活动类型
	var count int64
	db.Model(&model.ActivityType{}).Count(&count)
	if count == 0 {
		defaultTypes := []model.ActivityType{
			{Name: "Subida de Archivos", Description: "El estudiante sube un documento para revisión"},
			{Name: "Cuestionario", Description: "Preguntas de opción múltiple"},
			{Name: "Verdadero/Falso", Description: "Preguntas de verdadero o falso"},
			{Name: "Completar", Description: "Completar la frase"},
			{Name: "URL", Description: "Entrega mediante enlace (Drive)"},
		}
		for _, t := range defaultTypes {
			if err := db.Create(&t).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
