package controller

import (
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/service"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradeController struct {
	ReviewService     *service.ReviewService
	GradeService      *service.GradeService
	SubmissionService *service.SubmissionService
}

func NewGradeController(reviewService *service.ReviewService, gradeService *service.GradeService, submissionService *service.SubmissionService) *GradeController {
	return &GradeController{
		ReviewService:     reviewService,
		GradeService:      gradeService,
		SubmissionService: submissionService,
	}
}

type updateGradesBody struct {
	CourseID service.FlexibleID `json:"courseId" binding:"required"`
	UserID   string             `json:"userId" binding:"required"`
}

// @Summary 教师批改提交
// @Description 写回 KV 并更新 finalGrade/revisada，随后重算课程成绩
// @Tags 评分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.GradeRequest true "activityId, userId, grade, submissionKey"
// @Success 200 {object} util.Response{data=service.GradeResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/educadores/submissions/grade [post]
func (c *GradeController) GradeSubmission(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	var req service.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	result, err := c.ReviewService.GradeSubmission(ctx.Request.Context(), user.UserID(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 查看学生提交
// @Tags 评分
// @Produce json
// @Security BearerAuth
// @Param activityId path int true "活动ID"
// @Param userId path string true "学生ID"
// @Param kind query string false "提交类别，默认 submission"
// @Success 200 {object} util.Response
// @Router /api/educadores/activities/{activityId}/submissions/{userId} [get]
func (c *GradeController) GetSubmission(ctx *gin.Context) {
	activityID, err := util.ParamUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	kind := repository.SubmissionKind(ctx.DefaultQuery("kind", string(repository.KindSubmission)))

	payload, err := c.SubmissionService.GetSubmission(ctx.Request.Context(), activityID, ctx.Param("userId"), kind)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payload)
}

// @Summary 学生文档的限时下载链接
// @Tags 评分
// @Produce json
// @Security BearerAuth
// @Param activityId path int true "活动ID"
// @Param userId path string true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/educadores/activities/{activityId}/submissions/{userId}/document-url [get]
func (c *GradeController) DocumentURL(ctx *gin.Context) {
	activityID, err := util.ParamUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	url, err := c.ReviewService.DocumentURL(ctx.Request.Context(), activityID, ctx.Param("userId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

// @Summary 重算学生课程成绩
// @Description 写入已全部批改的参数成绩，课程完成时同步写入 materia 成绩
// @Tags 评分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body updateGradesBody true "courseId, userId"
// @Success 200 {object} util.Response{data=service.CourseGrade}
// @Router /api/grades/updateGrades [post]
func (c *GradeController) UpdateGrades(ctx *gin.Context) {
	var body updateGradesBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	grade, err := c.GradeService.RecalculateGrades(ctx.Request.Context(), uint(body.CourseID), body.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, grade)
}
