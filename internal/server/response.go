package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/history"
	"github.com/ryoshu-dev/ryoshu/internal/store"
)

// Business codes carried in every error envelope.
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeNotFound     = 40401
	CodeServerErr    = 50001
	CodeUnavailable  = 50301
)

// Success writes {"code":0,"data":data}.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error writes {"code":code,"message":msg}.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// fail maps a domain error to its status and business code.
func fail(c *gin.Context, err error) {
	status, code := classify(err)
	_ = c.Error(err)
	Error(c, status, code, err.Error())
}

func classify(err error) (httpStatus, code int) {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, history.ErrMissingID),
		errors.Is(err, capture.ErrNotImage),
		errors.Is(err, capture.ErrInvalidField):
		return http.StatusBadRequest, CodeInvalidParam
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeServerErr
	}
}
