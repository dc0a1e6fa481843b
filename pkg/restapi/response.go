package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bounty-uploader/pkg/errno"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 200 成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{Code: errno.OK.Code, Message: errno.OK.Message, Data: data})
}

// Accepted 202 已受理，处理在后台进行
func Accepted(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusAccepted, Response{Code: errno.OK.Code, Message: "Accepted", Data: data})
}

// Failed 失败响应，errno 错误码决定 HTTP 状态码
func Failed(ctx *gin.Context, err error) {
	var e *errno.Errno
	if !errors.As(err, &e) {
		e = &errno.Errno{Code: errno.ErrInternalServer.Code, Message: err.Error()}
	}
	ctx.AbortWithStatusJSON(HTTPStatus(e), Response{Code: e.Code, Message: e.Message})
}

// HTTPStatus maps an errno code onto an HTTP status.
func HTTPStatus(e *errno.Errno) int {
	switch {
	case e == nil:
		return http.StatusInternalServerError
	case e.Code >= 400 && e.Code < 600:
		return e.Code
	case e == errno.ErrSubmissionNotFound:
		return http.StatusNotFound
	case e == errno.ErrFileSizeIllegal:
		return http.StatusRequestEntityTooLarge
	case e.Code >= 20000 && e.Code < 20010:
		return http.StatusBadRequest
	case e.Code >= 20010 && e.Code < 20030:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
