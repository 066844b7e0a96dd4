package controller

import (
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/service"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

type fileSubmissionBody struct {
	ActivityID uint             `json:"activityId" binding:"required"`
	UserID     string           `json:"userId"`
	FileInfo   service.FileInfo `json:"fileInfo"`
}

type urlSubmissionBody struct {
	ActivityID     uint                  `json:"activityId" binding:"required"`
	UserID         string                `json:"userId"`
	SubmissionData service.URLSubmission `json:"submissionData"`
}

type answersBody struct {
	Answers map[string]interface{} `json:"answers" binding:"required"`
}

// subjectUser 请求体里的 userId 只能是本人
func subjectUser(ctx *gin.Context, bodyUserID string) (string, error) {
	user := util.GetUserFromContext(ctx)
	if bodyUserID != "" && bodyUserID != user.UserID() {
		return "", util.ErrForbidden("cannot submit on behalf of another user")
	}
	return user.UserID(), nil
}

// @Summary 保存文件提交
// @Description 写入 KV（30 天过期），活动计为一次尝试，状态重置为 pending
// @Tags 作业提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body fileSubmissionBody true "文件信息"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Router /api/activities/saveFileSubmission [post]
func (c *SubmissionController) SaveFileSubmission(ctx *gin.Context) {
	var body fileSubmissionBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}
	userID, err := subjectUser(ctx, body.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	result, err := c.SubmissionService.SaveFileSubmission(ctx.Request.Context(), userID, body.ActivityID, body.FileInfo)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 保存链接提交
// @Tags 作业提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body urlSubmissionBody true "链接信息"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Router /api/activities/saveUrlSubmission [post]
func (c *SubmissionController) SaveURLSubmission(ctx *gin.Context) {
	var body urlSubmissionBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}
	userID, err := subjectUser(ctx, body.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	result, err := c.SubmissionService.SaveURLSubmission(ctx.Request.Context(), userID, body.ActivityID, body.SubmissionData)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 保存测验作答
// @Tags 作业提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param activityId path int true "活动ID"
// @Param body body answersBody true "作答"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Router /api/activities/{activityId}/answers [post]
func (c *SubmissionController) SaveAnswers(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	activityID, err := util.ParamUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var body answersBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	result, err := c.SubmissionService.SaveAnswers(ctx.Request.Context(), user.UserID(), activityID, body.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 上传作业文档
// @Description 文件写入对象存储，documentKey 记录在 document 提交中
// @Tags 作业提交
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param activityId path int true "活动ID"
// @Param file formData file true "文档"
// @Success 201 {object} util.Response{data=service.SubmissionResult}
// @Router /api/activities/{activityId}/documents [post]
func (c *SubmissionController) UploadDocument(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	activityID, err := util.ParamUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	result, err := c.SubmissionService.UploadDocument(ctx.Request.Context(), user.UserID(), activityID, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 查看本人提交
// @Tags 作业提交
// @Produce json
// @Security BearerAuth
// @Param activityId path int true "活动ID"
// @Param kind query string false "answers|submission|file|document|urlsubmission，默认 submission"
// @Success 200 {object} util.Response
// @Router /api/activities/{activityId}/submission [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	activityID, err := util.ParamUint(ctx, "activityId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	kind := repository.SubmissionKind(ctx.DefaultQuery("kind", string(repository.KindSubmission)))

	payload, err := c.SubmissionService.GetSubmission(ctx.Request.Context(), activityID, user.UserID(), kind)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payload)
}
