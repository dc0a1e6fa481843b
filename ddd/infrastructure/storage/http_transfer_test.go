package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bounty-uploader/ddd/domain/gateway"
)

func TestTransferPutsBodyWithProgress(t *testing.T) {
	var got []byte
	var gotType string
	var gotLen int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotType = r.Header.Get("Content-Type")
		gotLen = r.ContentLength
		got, _ = io.ReadAll(r.Body)
	}))
	defer ts.Close()

	payload := bytes.Repeat([]byte("v"), 256<<10)
	var mu sync.Mutex
	var last, total int64
	status, err := NewHTTPTransferWithClient(ts.Client()).Transfer(context.Background(), gateway.TransferRequest{
		URL:         ts.URL + "/bucket/key.mp4?X-Amz-Signature=abc",
		ContentType: "video/mp4",
		Body:        bytes.NewReader(payload),
		Size:        int64(len(payload)),
		OnProgress: func(loaded, size int64) {
			mu.Lock()
			defer mu.Unlock()
			last, total = loaded, size
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, payload, got)
	assert.Equal(t, "video/mp4", gotType)
	assert.Equal(t, int64(len(payload)), gotLen)
	assert.Equal(t, int64(len(payload)), last)
	assert.Equal(t, int64(len(payload)), total)
}

func TestTransferReturnsStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "<Error><Code>SignatureDoesNotMatch</Code></Error>")
	}))
	defer ts.Close()

	status, err := NewHTTPTransferWithClient(ts.Client()).Transfer(context.Background(), gateway.TransferRequest{
		URL:  ts.URL + "/key.mov",
		Body: bytes.NewReader([]byte("x")),
		Size: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestTransferInfersContentType(t *testing.T) {
	var gotType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
	}))
	defer ts.Close()

	_, err := NewHTTPTransferWithClient(ts.Client()).Transfer(context.Background(), gateway.TransferRequest{
		URL:  ts.URL + "/key.MOV?sig=1",
		Body: bytes.NewReader([]byte("x")),
		Size: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "video/quicktime", gotType)
}

func TestTransferNilBody(t *testing.T) {
	_, err := NewHTTPTransfer(0).Transfer(context.Background(), gateway.TransferRequest{URL: "http://localhost"})
	assert.Error(t, err)
}

func TestGetContentTypeFromExtension(t *testing.T) {
	cases := map[string]string{
		"https://s3/a.mp4":            "video/mp4",
		"https://s3/a.webm?x=1":       "video/webm",
		"https://s3/a.mkv#frag":       "video/x-matroska",
		"https://s3/a.avi":            "video/x-msvideo",
		"https://s3/a":                "application/octet-stream",
		"https://s3/dir.mp4/a.bin?q=": "application/octet-stream",
	}
	for in, want := range cases {
		assert.Equal(t, want, getContentTypeFromExtension(in), in)
	}
}
