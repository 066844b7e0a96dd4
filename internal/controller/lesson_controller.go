package controller

import (
	"artiefy_backend/internal/service"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

type reorderBody struct {
	Lessons []service.LessonOrder `json:"lessons" binding:"required"`
}

// @Summary 课程课时（按学习顺序）
// @Tags 课时管理
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/educadores/courses/{courseId}/lessons [get]
func (c *LessonController) ListOrdered(ctx *gin.Context) {
	courseID, err := util.ParamUint(ctx, "courseId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	lessons, err := c.LessonService.ListOrdered(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// @Summary 调整课时顺序
// @Tags 课时管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body reorderBody true "课时ID与新的 orderIndex"
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/educadores/lessons/reorder [post]
func (c *LessonController) Reorder(ctx *gin.Context) {
	var body reorderBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	lessons, err := c.LessonService.Reorder(ctx.Request.Context(), body.Lessons)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// @Summary 按标题回填 orderIndex
// @Description 课程已有完整顺序时不做改动
// @Tags 课时管理
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/educadores/courses/{courseId}/lessons/backfill-order [post]
func (c *LessonController) BackfillOrder(ctx *gin.Context) {
	courseID, err := util.ParamUint(ctx, "courseId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	updated, err := c.LessonService.BackfillOrderIndex(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"courseId": courseID, "updated": updated})
}
