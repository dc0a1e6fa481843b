package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bounty-uploader/pkg/errno"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *errno.Errno
		want int
	}{
		{nil, http.StatusInternalServerError},
		{errno.ErrInvalidParam, http.StatusBadRequest},
		{errno.ErrServerBusy, http.StatusServiceUnavailable},
		{errno.ErrUnknown, 510},
		{errno.ErrMissingParam, http.StatusBadRequest},
		{errno.ErrFileSizeIllegal, http.StatusRequestEntityTooLarge},
		{errno.ErrSubmissionNotFound, http.StatusNotFound},
		{errno.ErrEngineLoad, http.StatusBadGateway},
		{errno.ErrConfirmation, http.StatusBadGateway},
		{&errno.Errno{Code: 99999}, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err))
	}
}

func TestFailedWrapsPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Failed(ctx, errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, ctx.IsAborted())

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, "disk full", resp.Message)
}

func TestSuccessAndAccepted(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	Success(ctx, gin.H{"a": 1})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"code":200,"message":"Success","data":{"a":1}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	ctx, _ = gin.CreateTestContext(rec)
	Accepted(ctx, gin.H{"submission_id": "x"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"code":200,"message":"Accepted","data":{"submission_id":"x"}}`, rec.Body.String())
}
