package controller

import (
	"artiefy_backend/internal/service"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	GradeService    *service.GradeService
}

func NewProgressController(progressService *service.ProgressService, gradeService *service.GradeService) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		GradeService:    gradeService,
	}
}

type progressBody struct {
	Progress *float64 `json:"progress" binding:"required"`
}

type unlockBody struct {
	LessonID        uint `json:"lessonId" binding:"required"`
	CurrentLessonID uint `json:"currentLessonId" binding:"required"`
}

// @Summary 报名课程
// @Description 初始化全部课时进度，首课时解锁
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Router /api/courses/{courseId}/enroll [post]
func (c *ProgressController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	courseID, err := util.ParamUint(ctx, "courseId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	progress, err := c.ProgressService.EnrollInCourse(ctx.Request.Context(), user.UserID(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary 课程进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Router /api/courses/{courseId}/progress [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	courseID, err := util.ParamUint(ctx, "courseId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	progress, err := c.ProgressService.GetCourseProgress(ctx.Request.Context(), user.UserID(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary 课程成绩
// @Description 按评分参数加权，仅统计已批改的活动
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseGrade}
// @Router /api/courses/{courseId}/grades [get]
func (c *ProgressController) GetCourseGrades(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	courseID, err := util.ParamUint(ctx, "courseId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	grades, err := c.GradeService.GetCourseGrades(ctx.Request.Context(), courseID, user.UserID())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, grades)
}

// @Summary 更新课时进度
// @Description 进度 0-100，完成后自动解锁下一课时
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path int true "课时ID"
// @Param body body progressBody true "进度"
// @Success 200 {object} util.Response{data=service.LessonProgressResult}
// @Router /api/lessons/{lessonId}/progress [post]
func (c *ProgressController) UpdateLessonProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	lessonID, err := util.ParamUint(ctx, "lessonId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var body progressBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	result, err := c.ProgressService.UpdateLessonProgress(ctx.Request.Context(), user.UserID(), lessonID, *body.Progress)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 解锁下一课时
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body unlockBody true "lessonId 为待解锁课时，currentLessonId 为当前课时"
// @Success 200 {object} util.Response
// @Router /api/lessons/unlock [post]
func (c *ProgressController) UnlockLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	var body unlockBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	if err := c.ProgressService.UnlockLesson(ctx.Request.Context(), user.UserID(), body.LessonID, body.CurrentLessonID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"lessonId": body.LessonID, "unlocked": true})
}

// @Summary 更新活动进度
// @Description 进度达到 100 时标记完成
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param activityId path int true "活动ID"
// @Param body body progressBody true "进度"
// @Success 200 {object} util.Response{data=service.ActivityProgressResult}
// @Router /api/activities/{activityId}/progress [post]
func (c *ProgressController) UpdateActivityProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	activityID, err := util.ParamUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var body progressBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	result, err := c.ProgressService.UpdateActivityProgress(ctx.Request.Context(), user.UserID(), activityID, *body.Progress)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
