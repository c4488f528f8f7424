package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	CodeOK           = 0
	CodeBadRequest   = 40000
	CodeUnauthorized = 40100
	CodeNotFound     = 40400
	CodeConflict     = 40900
	CodeTooMany      = 42900
	CodeInternal     = 50000
)

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Message: "success", Data: data})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: CodeOK, Message: message, Data: data})
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Message: message, Data: data})
}

// NoContent 204 不允许携带响应体，message 仅用于日志
func NoContent(c *gin.Context, message string) {
	c.Header("X-Result", message)
	c.Status(http.StatusNoContent)
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Code: CodeBadRequest, Message: message})
}

func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Message: message})
}

func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{Code: CodeNotFound, Message: message})
}

func TooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{Code: CodeTooMany, Message: "too many requests"})
}

// InternalError 记录原始错误，但只给客户端返回通用信息
func InternalError(c *gin.Context, err error) {
	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, Response{Code: CodeInternal, Message: "internal server error"})
}

// Error 将业务错误映射为 HTTP 状态码；冲突默认 400
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		InternalError(c, err)
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		BadRequest(c, appErr.Message)
	case errors.Is(err, apperror.ErrNotFound):
		NotFound(c, appErr.Message)
	case errors.Is(err, apperror.ErrUnauthorized):
		Unauthorized(c, appErr.Message)
	case errors.Is(err, apperror.ErrConflict):
		c.JSON(http.StatusBadRequest, Response{Code: CodeConflict, Message: appErr.Message})
	default:
		InternalError(c, err)
	}
}
