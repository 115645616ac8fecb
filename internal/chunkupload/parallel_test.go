package chunkupload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumable/uploadkit/internal/digest"
	"github.com/resumable/uploadkit/internal/httpclient"
	"github.com/resumable/uploadkit/internal/session"
)

func TestUploadRange_AllChunksSucceedInIndexOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := writeTempFile(t, []byte("0123456789abcdef")) // 16 bytes
	u := New(httpclient.New(nil, nil), digest.SHA256, time.Second)

	rec := &session.Record{SessionID: "s1", Endpoint: srv.URL, ChunkSize: 4, TotalSize: 16}
	results, err := u.UploadRange(context.Background(), rec, path, []int64{3, 1, 0, 2}, 1, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, int64(i), r.Index)
	}
}

func TestUploadRange_FailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idxStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/s1/chunks/"), "")
		idx, _ := strconv.Atoi(idxStr)
		if idx == 2 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := writeTempFile(t, []byte("0123456789abcdef"))
	u := New(httpclient.New(nil, nil), digest.SHA256, time.Second)
	u.Sleep = noopSleep

	rec := &session.Record{SessionID: "s1", Endpoint: srv.URL, ChunkSize: 4, TotalSize: 16}
	_, err := u.UploadRange(context.Background(), rec, path, []int64{0, 1, 2, 3}, 0, 2, nil)
	require.Error(t, err)
}

func TestUploadRange_DefaultsConcurrencyToOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := writeTempFile(t, []byte("01234567"))
	u := New(httpclient.New(nil, nil), digest.SHA256, time.Second)

	rec := &session.Record{SessionID: "s1", Endpoint: srv.URL, ChunkSize: 4, TotalSize: 8}
	results, err := u.UploadRange(context.Background(), rec, path, []int64{0, 1}, 0, 0, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
