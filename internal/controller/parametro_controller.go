package controller

import (
	"artiefy_backend/internal/service"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ParametroController struct {
	ParametroService *service.ParametroService
}

func NewParametroController(parametroService *service.ParametroService) *ParametroController {
	return &ParametroController{ParametroService: parametroService}
}

type parametroBatchBody struct {
	Parametros []service.ParametroRequest `json:"parametros" binding:"required"`
}

type parametroDeleteBody struct {
	ID service.FlexibleID `json:"id"`
}

// @Summary 课程评分参数列表
// @Tags 评分参数
// @Produce json
// @Security BearerAuth
// @Param courseId query int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Parametro}
// @Router /api/educadores/parametros [get]
func (c *ParametroController) List(ctx *gin.Context) {
	courseID, err := util.QueryUint(ctx, "courseId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	params, err := c.ParametroService.List(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, params)
}

// @Summary 新建评分参数
// @Description 同一课程的 porcentaje 合计不得超过上限
// @Tags 评分参数
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.ParametroRequest true "参数"
// @Success 201 {object} util.Response{data=model.Parametro}
// @Failure 400 {object} util.Response
// @Router /api/educadores/parametros [post]
func (c *ParametroController) Create(ctx *gin.Context) {
	var req service.ParametroRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	param, err := c.ParametroService.Create(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, param)
}

// @Summary 批量更新评分参数
// @Description 整批校验合计后在单个事务内更新
// @Tags 评分参数
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body parametroBatchBody true "参数列表"
// @Success 200 {object} util.Response{data=[]model.Parametro}
// @Router /api/educadores/parametros [put]
func (c *ParametroController) UpdateBatch(ctx *gin.Context) {
	var body parametroBatchBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.HandleBindError(ctx, err)
		return
	}

	params, err := c.ParametroService.UpdateBatch(ctx.Request.Context(), body.Parametros)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, params)
}

// @Summary 删除评分参数
// @Description 带 courseId 时删除该课程全部参数，否则按请求体 id 删除
// @Tags 评分参数
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId query int false "课程ID"
// @Param body body parametroDeleteBody false "参数ID"
// @Success 200 {object} util.Response
// @Router /api/educadores/parametros [delete]
func (c *ParametroController) Delete(ctx *gin.Context) {
	if ctx.Query("courseId") != "" {
		courseID, err := util.QueryUint(ctx, "courseId")
		if err != nil {
			util.HandleError(ctx, err)
			return
		}
		deleted, err := c.ParametroService.DeleteByCourse(ctx.Request.Context(), courseID)
		if err != nil {
			util.HandleError(ctx, err)
			return
		}
		util.Success(ctx, gin.H{"deleted": deleted})
		return
	}

	var body parametroDeleteBody
	if err := ctx.ShouldBindJSON(&body); err != nil || body.ID == 0 {
		util.BadRequest(ctx, "id or courseId is required")
		return
	}
	if err := c.ParametroService.Delete(ctx.Request.Context(), uint(body.ID)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": 1})
}
