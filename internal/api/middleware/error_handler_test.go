package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "venuehq.io/banquet/internal/pkg/errors"
)

func errorRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app-error", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrEventNotFoundf("ev-404"))
	})
	r.GET("/plain-error", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})
	r.GET("/fine", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	w := doReq(errorRouter(), http.MethodGet, "/app-error", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "EVENT_NOT_FOUND")
	assert.Contains(t, w.Body.String(), "ev-404")
}

func TestErrorHandlerFallsBackTo500(t *testing.T) {
	w := doReq(errorRouter(), http.MethodGet, "/plain-error", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestErrorHandlerLeavesSuccessAlone(t *testing.T) {
	w := doReq(errorRouter(), http.MethodGet, "/fine", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
