package controller

import (
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/service"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

type questionBody struct {
	ActivityID service.FlexibleID  `json:"activityId" binding:"required"`
	Question   repository.Question `json:"question" binding:"required"`
}

func bankOf(ctx *gin.Context) repository.QuestionBank {
	return repository.QuestionBank(ctx.DefaultQuery("bank", string(repository.BankGeneral)))
}

// @Summary 活动题目列表
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param activityId query int true "活动ID"
// @Param bank query string false "questions|questionsFilesSubida|questionsOM|questionsVOF|questionsACompletar"
// @Success 200 {object} util.Response
// @Router /api/educadores/question [get]
func (c *QuestionController) List(ctx *gin.Context) {
	activityID, err := util.QueryUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	questions, err := c.QuestionService.List(ctx.Request.Context(), activityID, bankOf(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"questions": questions})
}

// @Summary 新增题目
// @Description 计分题库的 pesoPregunta 合计不超过 100
// @Tags 题库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bank query string false "题库"
// @Param body body questionBody true "题目"
// @Success 201 {object} util.Response
// @Router /api/educadores/question [post]
func (c *QuestionController) Add(ctx *gin.Context) {
	var body questionBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	q, err := c.QuestionService.Add(ctx.Request.Context(), uint(body.ActivityID), bankOf(ctx), body.Question)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 修改题目
// @Tags 题库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bank query string false "题库"
// @Param body body questionBody true "题目，需带 id"
// @Success 200 {object} util.Response
// @Router /api/educadores/question [put]
func (c *QuestionController) Update(ctx *gin.Context) {
	var body questionBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	q, err := c.QuestionService.Update(ctx.Request.Context(), uint(body.ActivityID), bankOf(ctx), body.Question)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除题目
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param activityId query int true "活动ID"
// @Param questionId query string true "题目ID"
// @Param bank query string false "题库"
// @Success 200 {object} util.Response
// @Router /api/educadores/question [delete]
func (c *QuestionController) Delete(ctx *gin.Context) {
	activityID, err := util.QueryUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	questionID := ctx.Query("questionId")
	if questionID == "" {
		util.BadRequest(ctx, "questionId is required")
		return
	}

	if err := c.QuestionService.Delete(ctx.Request.Context(), activityID, bankOf(ctx), questionID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": questionID})
}

// @Summary 活动计分题权重汇总
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param activityId query int true "活动ID"
// @Success 200 {object} util.Response{data=service.WeightSummary}
// @Router /api/educadores/actividades/porcentajes [get]
func (c *QuestionController) WeightSummary(ctx *gin.Context) {
	activityID, err := util.QueryUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	summary, err := c.QuestionService.WeightSummary(ctx.Request.Context(), activityID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
