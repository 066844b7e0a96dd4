package controller

import (
	"artiefy_backend/internal/service"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certificateService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certificateService}
}

// @Summary 证书资格
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Param programId path int true "项目ID"
// @Success 200 {object} util.Response{data=service.Eligibility}
// @Router /api/programs/{programId}/certificate/eligibility [get]
func (c *CertificateController) Eligibility(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	programID, err := util.ParamUint(ctx, "programId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	elig, err := c.CertificateService.CheckEligibility(ctx.Request.Context(), user.UserID(), programID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, elig)
}

// @Summary 颁发证书
// @Description 已有证书时直接返回
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Param programId path int true "项目ID"
// @Success 200 {object} util.Response{data=model.Certificate}
// @Failure 403 {object} util.Response
// @Router /api/programs/{programId}/certificate [post]
func (c *CertificateController) Issue(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	programID, err := util.ParamUint(ctx, "programId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	cert, err := c.CertificateService.Issue(ctx.Request.Context(), user.UserID(), programID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}
