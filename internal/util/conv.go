package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParamUint 读取路径参数中的正整数 ID
func ParamUint(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, ErrBadRequest("invalid " + name)
	}
	return uint(id), nil
}

// QueryUint 读取查询参数中的正整数 ID
func QueryUint(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil || id == 0 {
		return 0, ErrBadRequest("invalid " + name)
	}
	return uint(id), nil
}
