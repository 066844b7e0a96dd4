package middleware

import (
	"strings"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/model"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware 校验身份提供方签发的 Bearer 令牌
func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.Secret, cfg.Issuer)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug("JWT parse failed", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// RoleMiddleware admin 与 super-admin 直接放行
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role.IsAdmin()
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type UserSyncRepo interface {
	Sync(user *model.User) error
}

// ActivityMiddleware 异步刷新本地用户镜像，不阻塞主流程
func ActivityMiddleware(repo UserSyncRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims != nil {
			user := &model.User{
				ID:    claims.UserID(),
				Name:  claims.Name,
				Email: claims.Email,
				Role:  claims.Role,
			}
			log := logger.FromContext(c.Request.Context())
			go func() {
				if err := repo.Sync(user); err != nil {
					log.Warn("user sync failed", zap.String("user_id", user.ID), zap.Error(err))
				}
			}()
		}
		c.Next()
	}
}
