package app

import (
	"artiefy_backend/docs"
	"artiefy_backend/internal/config"
	"artiefy_backend/internal/middleware"
	"artiefy_backend/internal/model"
	"artiefy_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(&cfg.JWT), middleware.ActivityMiddleware(repos.user))
	{
		// 学生接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerEducatorRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	courses := rg.Group("/courses")
	{
		courses.POST("/:courseId/enroll", c.progress.Enroll)
		courses.GET("/:courseId/progress", c.progress.GetCourseProgress)
		courses.GET("/:courseId/grades", c.progress.GetCourseGrades)
	}

	lessons := rg.Group("/lessons")
	{
		lessons.POST("/:lessonId/progress", c.progress.UpdateLessonProgress)
		lessons.POST("/unlock", c.progress.UnlockLesson)
	}

	activities := rg.Group("/activities")
	{
		activities.POST("/saveFileSubmission", c.submission.SaveFileSubmission)
		activities.POST("/saveUrlSubmission", c.submission.SaveURLSubmission)
		activities.POST("/:activityId/progress", c.progress.UpdateActivityProgress)
		activities.POST("/:activityId/answers", c.submission.SaveAnswers)
		activities.POST("/:activityId/documents", c.submission.UploadDocument)
		activities.GET("/:activityId/submission", c.submission.GetSubmission)
	}

	programs := rg.Group("/programs")
	{
		programs.GET("/:programId/certificate/eligibility", c.certificate.Eligibility)
		programs.POST("/:programId/certificate", c.certificate.Issue)
	}
}

func (a *App) registerEducatorRoutes(rg *gin.RouterGroup, c *controllers) {
	educator := rg.Group("/educadores")
	educator.Use(middleware.RoleMiddleware(model.Educator))
	{
		// 评分参数
		educator.GET("/parametros", c.parametro.List)
		educator.POST("/parametros", c.parametro.Create)
		educator.PUT("/parametros", c.parametro.UpdateBatch)
		educator.DELETE("/parametros", c.parametro.Delete)

		// 课时顺序
		educator.GET("/courses/:courseId/lessons", c.lesson.ListOrdered)
		educator.POST("/lessons/reorder", c.lesson.Reorder)
		educator.POST("/courses/:courseId/lessons/backfill-order", c.lesson.BackfillOrder)

		// 批改
		educator.POST("/submissions/grade", c.grade.GradeSubmission)
		educator.GET("/activities/:activityId/submissions/:userId", c.grade.GetSubmission)
		educator.GET("/activities/:activityId/submissions/:userId/document-url", c.grade.DocumentURL)

		// 题库
		educator.GET("/question", c.question.List)
		educator.POST("/question", c.question.Add)
		educator.PUT("/question", c.question.Update)
		educator.DELETE("/question", c.question.Delete)
		educator.GET("/actividades/porcentajes", c.question.WeightSummary)
	}

	grades := rg.Group("/grades")
	grades.Use(middleware.RoleMiddleware(model.Educator))
	{
		grades.POST("/updateGrades", c.grade.UpdateGrades)
	}
}
