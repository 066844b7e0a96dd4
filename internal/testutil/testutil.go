// Package testutil 提供测试用的内存数据库、内存 Redis 与数据构造函数
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"artiefy_backend/internal/model"
	"artiefy_backend/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 每个测试一个独立的内存 sqlite，已完成迁移
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()[:8])

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 单连接：并发写入在连接池上排队，内存库也不会因连接关闭而丢失
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Redis 基于 miniredis 的客户端，测试结束自动关闭
func Redis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func SeedCourse(t *testing.T, db *gorm.DB, title string) *model.Course {
	t.Helper()
	c := &model.Course{Title: title, CreatorID: "educator-1"}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedLessons 按给定标题创建课时，order_index 留空
func SeedLessons(t *testing.T, db *gorm.DB, courseID uint, titles ...string) []model.Lesson {
	t.Helper()
	lessons := make([]model.Lesson, 0, len(titles))
	for _, title := range titles {
		l := model.Lesson{CourseID: courseID, Title: title}
		if err := db.Create(&l).Error; err != nil {
			t.Fatalf("seed lesson: %v", err)
		}
		lessons = append(lessons, l)
	}
	return lessons
}

func SeedActivity(t *testing.T, db *gorm.DB, lessonID uint, parametroID *uint, porcentaje int) *model.Activity {
	t.Helper()
	a := &model.Activity{LessonID: lessonID, TypeID: 1, Name: "actividad", ParametroID: parametroID, Porcentaje: porcentaje}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed activity: %v", err)
	}
	return a
}

func SeedParametro(t *testing.T, db *gorm.DB, courseID uint, name string, porcentaje int) *model.Parametro {
	t.Helper()
	p := &model.Parametro{CourseID: courseID, Name: name, Porcentaje: porcentaje}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed parametro: %v", err)
	}
	return p
}

func SeedProgram(t *testing.T, db *gorm.DB, title string, courseIDs ...uint) (*model.Program, []model.Materia) {
	t.Helper()
	p := &model.Program{Title: title}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed program: %v", err)
	}
	materias := make([]model.Materia, 0, len(courseIDs))
	for i, cid := range courseIDs {
		courseID := cid
		m := model.Materia{ProgramaID: p.ID, CourseID: &courseID, Title: fmt.Sprintf("materia %d", i+1)}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed materia: %v", err)
		}
		materias = append(materias, m)
	}
	return p, materias
}
