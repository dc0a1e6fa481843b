package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bounty-uploader/ddd/application/cqe"
	"bounty-uploader/ddd/application/dto"
	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/ddd/domain/port"
	"bounty-uploader/ddd/domain/service"
	"bounty-uploader/ddd/infrastructure/queue"
	"bounty-uploader/ddd/infrastructure/worker"
)

type fakeSubmissionApp struct {
	err     error
	release chan struct{}
	got     chan *cqe.SubmitVideoCqe
}

func (f *fakeSubmissionApp) Submit(ctx context.Context, cmd *cqe.SubmitVideoCqe, listener port.ProgressListener) (*dto.SubmissionResultDTO, error) {
	if f.got != nil {
		f.got <- cmd
	}
	if f.release != nil {
		<-f.release
	}
	listener(port.StageCompressing, 100)
	listener(port.StageUploading, 100)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.SubmissionResultDTO{
		Message:    "Video uploaded successfully",
		FileID:     "f1",
		StorageURL: "s3://videos/f1.mp4",
		Filename:   cmd.Video.Name(),
	}, nil
}

func (f *fakeSubmissionApp) Estimate(blob *entity.MediaBlob) *dto.EstimateDTO {
	return &dto.EstimateDTO{Filename: blob.Name()}
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine  *gin.Engine
	tracker *SubmissionTracker
}

func newTestServer(t *testing.T, a *fakeSubmissionApp, capacity int, startWorker bool, maxBody int64) *testServer {
	t.Helper()
	tracker := NewSubmissionTracker(time.Minute)
	jobs := queue.NewMemoryJobQueue(capacity)
	if startWorker {
		w := worker.NewSubmissionWorker("test", jobs, 1)
		require.NoError(t, w.Start(context.Background()))
		t.Cleanup(func() { _ = w.Stop() })
	}
	engine := NewEngine(gin.TestMode)
	NewSubmissionController(context.Background(), a, tracker, jobs, maxBody).RegisterRoutes(engine.Group("/api/v1"))
	return &testServer{engine: engine, tracker: tracker}
}

func (s *testServer) do(req *stdhttp.Request) (*httptest.ResponseRecorder, apiResponse) {
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	var resp apiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func submissionRequest(t *testing.T, fields map[string]string, video []byte) *stdhttp.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if video != nil {
		fw, err := w.CreateFormFile("video", "clip.mp4")
		require.NoError(t, err)
		_, err = fw.Write(video)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/submissions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{"name": "Jane", "email": "jane@example.com", "venmo_id": "@jane"}
}

func (s *testServer) status(t *testing.T, id string) dto.SubmissionStatusDTO {
	t.Helper()
	rec, resp := s.do(httptest.NewRequest(stdhttp.MethodGet, "/api/v1/submissions/"+id, nil))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var st dto.SubmissionStatusDTO
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	return st
}

func acceptedID(t *testing.T, rec *httptest.ResponseRecorder, resp apiResponse) string {
	t.Helper()
	require.Equal(t, stdhttp.StatusAccepted, rec.Code, rec.Body.String())
	var data struct {
		SubmissionID string `json:"submission_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.SubmissionID)
	return data.SubmissionID
}

func TestCreateSubmissionCompletesInBackground(t *testing.T) {
	a := &fakeSubmissionApp{got: make(chan *cqe.SubmitVideoCqe, 1)}
	s := newTestServer(t, a, 4, true, 1<<20)

	rec, resp := s.do(submissionRequest(t, validFields(), []byte("video-bytes")))
	id := acceptedID(t, rec, resp)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	cmd := <-a.got
	assert.Equal(t, "Jane", cmd.Name)
	assert.Equal(t, "@jane", cmd.PayoutHandle)
	assert.Equal(t, "clip.mp4", cmd.Video.Name())
	assert.Equal(t, []byte("video-bytes"), cmd.Video.Bytes())

	require.Eventually(t, func() bool {
		return s.status(t, id).Stage == dto.SubmissionStageCompleted
	}, 2*time.Second, 10*time.Millisecond)

	st := s.status(t, id)
	require.NotNil(t, st.Result)
	assert.Equal(t, "f1", st.Result.FileID)
	assert.Equal(t, 100, st.CompressionProgress)
	assert.Equal(t, 100, st.UploadProgress)
	assert.NotNil(t, st.FinishedAt)
}

func TestCreateSubmissionRecordsFailure(t *testing.T) {
	a := &fakeSubmissionApp{err: &service.TransferError{Status: 403}}
	s := newTestServer(t, a, 4, true, 1<<20)

	rec, resp := s.do(submissionRequest(t, validFields(), []byte("v")))
	id := acceptedID(t, rec, resp)

	require.Eventually(t, func() bool {
		return s.status(t, id).Stage == dto.SubmissionStageFailed
	}, 2*time.Second, 10*time.Millisecond)
	st := s.status(t, id)
	assert.Equal(t, "transfer", st.FailedStep)
	assert.Equal(t, "S3 upload failed with status 403", st.Error)
	assert.Equal(t, 20021, st.ErrorCode)
	assert.Nil(t, st.Result)
}

func TestCreateSubmissionMissingField(t *testing.T) {
	s := newTestServer(t, &fakeSubmissionApp{}, 4, false, 1<<20)
	fields := validFields()
	delete(fields, "email")

	rec, resp := s.do(submissionRequest(t, fields, []byte("v")))
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, 20001, resp.Code)
}

func TestCreateSubmissionMissingVideo(t *testing.T) {
	s := newTestServer(t, &fakeSubmissionApp{}, 4, false, 1<<20)

	rec, resp := s.do(submissionRequest(t, validFields(), nil))
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, 400, resp.Code)
}

func TestCreateSubmissionEmptyVideo(t *testing.T) {
	s := newTestServer(t, &fakeSubmissionApp{}, 4, false, 1<<20)

	rec, resp := s.do(submissionRequest(t, validFields(), []byte{}))
	assert.Equal(t, stdhttp.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 20003, resp.Code)
}

func TestCreateSubmissionBodyTooLarge(t *testing.T) {
	s := newTestServer(t, &fakeSubmissionApp{}, 4, false, 512)

	rec, resp := s.do(submissionRequest(t, validFields(), bytes.Repeat([]byte("v"), 4096)))
	assert.Equal(t, stdhttp.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 20003, resp.Code)
}

func TestCreateSubmissionStreamedBodyTooLarge(t *testing.T) {
	s := newTestServer(t, &fakeSubmissionApp{}, 4, false, 512)

	req := submissionRequest(t, validFields(), bytes.Repeat([]byte("v"), 4096))
	// 分块上传没有 Content-Length，只能在读取时截断
	req.Body = io.NopCloser(io.MultiReader(req.Body))
	req.ContentLength = -1

	rec, resp := s.do(req)
	assert.Equal(t, stdhttp.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 20003, resp.Code)
}

func TestBodyTooLarge(t *testing.T) {
	assert.True(t, bodyTooLarge(&stdhttp.MaxBytesError{Limit: 1}))
	assert.True(t, bodyTooLarge(fmt.Errorf("multipart: NextPart: %v", &stdhttp.MaxBytesError{Limit: 1})))
	assert.False(t, bodyTooLarge(errors.New("unexpected EOF")))
}

func TestCreateSubmissionQueueFull(t *testing.T) {
	s := newTestServer(t, &fakeSubmissionApp{}, 1, false, 1<<20)

	rec, resp := s.do(submissionRequest(t, validFields(), []byte("v")))
	first := acceptedID(t, rec, resp)

	rec, resp = s.do(submissionRequest(t, validFields(), []byte("v")))
	assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 503, resp.Code)

	assert.Equal(t, dto.SubmissionStageQueued, s.status(t, first).Stage)
	s.tracker.mu.RLock()
	assert.Len(t, s.tracker.items, 1)
	s.tracker.mu.RUnlock()
}

func TestGetSubmissionNotFound(t *testing.T) {
	s := newTestServer(t, &fakeSubmissionApp{}, 1, false, 1<<20)

	rec, resp := s.do(httptest.NewRequest(stdhttp.MethodGet, "/api/v1/submissions/nope", nil))
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Equal(t, 20004, resp.Code)
}

func TestHealthMetricsAndNoRoute(t *testing.T) {
	s := newTestServer(t, &fakeSubmissionApp{}, 1, false, 1<<20)

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "bounty-uploader", health["service"])

	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/metrics", nil))
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bounty_uploader_http_requests_total")

	rec, resp := s.do(httptest.NewRequest(stdhttp.MethodGet, "/nowhere", nil))
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Equal(t, 404, resp.Code)
}
