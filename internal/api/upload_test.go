package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkRecord captures what the server saw for one chunk request.
type chunkRecord struct {
	fileName    string
	chunkIndex  int
	totalChunks int
	data        string
	fields      map[string]string
}

// chunkServer collects multipart chunk uploads and optionally fails a
// specific chunk index.
type chunkServer struct {
	t          *testing.T
	records    []chunkRecord
	failAt     int // chunkIndex to fail with 500, -1 for never
	statusCode int
}

func newChunkServer(t *testing.T) *chunkServer {
	t.Helper()

	return &chunkServer{t: t, failAt: -1, statusCode: http.StatusOK}
}

func (s *chunkServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(s.t, r.ParseMultipartForm(10<<20))

		rec := chunkRecord{
			fileName: r.FormValue("fileName"),
			fields:   map[string]string{},
		}

		rec.chunkIndex, _ = strconv.Atoi(r.FormValue("chunkIndex"))
		rec.totalChunks, _ = strconv.Atoi(r.FormValue("totalChunks"))

		for k, v := range r.MultipartForm.Value {
			switch k {
			case "fileName", "chunkIndex", "totalChunks":
			default:
				rec.fields[k] = v[0]
			}
		}

		file, _, err := r.FormFile("file")
		require.NoError(s.t, err)

		data, err := io.ReadAll(file)
		require.NoError(s.t, err)
		rec.data = string(data)

		s.records = append(s.records, rec)

		if rec.chunkIndex == s.failAt {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(s.statusCode)
	}
}

func TestUploadInChunks_SequentialChunks(t *testing.T) {
	cs := newChunkServer(t)
	srv := httptest.NewServer(cs.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	client.SetChunkSize(4)

	var progress []UploadProgress

	content := "abcdefghij" // 10 bytes -> chunks of 4, 4, 2

	result, err := client.UploadInChunks(
		context.Background(), "/files/upload", "report.pdf",
		strings.NewReader(content), int64(len(content)),
		map[string]string{"visibility": "private", "folderId": "7"},
		func(p UploadProgress) { progress = append(progress, p) },
	)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "report.pdf", result.FileName)
	assert.Equal(t, int64(10), result.Size)

	require.Len(t, cs.records, 3)

	for i, rec := range cs.records {
		assert.Equal(t, i, rec.chunkIndex, "chunks arrive in order")
		assert.Equal(t, 3, rec.totalChunks)
		assert.Equal(t, "report.pdf", rec.fileName)
		assert.Equal(t, "private", rec.fields["visibility"])
		assert.Equal(t, "7", rec.fields["folderId"])
	}

	assert.Equal(t, "abcd", cs.records[0].data)
	assert.Equal(t, "efgh", cs.records[1].data)
	assert.Equal(t, "ij", cs.records[2].data)

	// One callback per chunk, cumulative and ending exactly at the total.
	require.Len(t, progress, 3)
	assert.Equal(t, UploadProgress{LoadedBytes: 4, TotalBytes: 10}, progress[0])
	assert.Equal(t, UploadProgress{LoadedBytes: 8, TotalBytes: 10}, progress[1])
	assert.Equal(t, UploadProgress{LoadedBytes: 10, TotalBytes: 10}, progress[2])
}

func TestUploadInChunks_ZeroByteFile(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	var progressCalls int

	result, err := client.UploadInChunks(
		context.Background(), "/files/upload", "empty.txt",
		strings.NewReader(""), 0, nil,
		func(UploadProgress) { progressCalls++ },
	)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(0), result.Size)
	assert.Equal(t, int32(0), calls.Load(), "zero chunks for a zero-byte file")
	assert.Zero(t, progressCalls)
}

func TestUploadInChunks_FailureStopsSequence(t *testing.T) {
	cs := newChunkServer(t)
	cs.failAt = 1 // fail the second chunk

	srv := httptest.NewServer(cs.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	client.SetChunkSize(4)

	var progress []UploadProgress

	content := "abcdefghij"

	_, err := client.UploadInChunks(
		context.Background(), "/files/upload", "report.pdf",
		strings.NewReader(content), int64(len(content)), nil,
		func(p UploadProgress) { progress = append(progress, p) },
	)
	require.Error(t, err)

	var chunkErr *ChunkUploadError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, "Failed to upload chunk 2 of 3", chunkErr.Error())
	assert.Equal(t, 2, chunkErr.Chunk)
	assert.Equal(t, 3, chunkErr.Total)
	assert.ErrorIs(t, err, ErrServerError, "the cause stays reachable")

	// Chunk 3 was never sent; progress stopped after chunk 1.
	require.Len(t, cs.records, 2)
	require.Len(t, progress, 1)
	assert.Equal(t, int64(4), progress[0].LoadedBytes)
}

func TestUploadInChunks_NormalizesFileName(t *testing.T) {
	cs := newChunkServer(t)
	srv := httptest.NewServer(cs.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	// "é" as combining sequence (e + U+0301) normalizes to a single rune.
	decomposed := "café.txt"
	composed := "café.txt"

	result, err := client.UploadInChunks(
		context.Background(), "/files/upload", decomposed,
		strings.NewReader("x"), 1, nil, nil,
	)
	require.NoError(t, err)
	assert.Equal(t, composed, result.FileName)

	require.Len(t, cs.records, 1)
	assert.Equal(t, composed, cs.records[0].fileName)
}

// Chunk uploads ride the normal pipeline, so a stale token triggers a
// refresh mid-upload and the chunk is resubmitted.
func TestUploadInChunks_RefreshMidUpload(t *testing.T) {
	var refreshCalls atomic.Int32

	cs := newChunkServer(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"new-access","refreshToken":"new-refresh"}`))
	})

	inner := cs.handler()
	mux.HandleFunc("/files/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		inner(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	client.SetChunkSize(4)

	content := "abcdefgh"

	result, err := client.UploadInChunks(
		context.Background(), "/files/upload", "a.bin",
		strings.NewReader(content), int64(len(content)), nil, nil,
	)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(1), refreshCalls.Load())
	require.Len(t, cs.records, 2)
}

func TestUploadFile_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "notes.txt", r.FormValue("fileName"))
		assert.Equal(t, "shared", r.FormValue("visibility"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"fileName":"notes.txt","fileSize":5}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	var progress []UploadProgress

	info, err := client.UploadFile(
		context.Background(), "/files/upload", "notes.txt",
		strings.NewReader("hello"), 5,
		map[string]string{"visibility": "shared"},
		func(p UploadProgress) { progress = append(progress, p) },
	)
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.ID)
	assert.Equal(t, "notes.txt", info.FileName)

	// Progress covers the encoded form and never regresses.
	require.NotEmpty(t, progress)

	var prev int64
	for _, p := range progress {
		assert.GreaterOrEqual(t, p.LoadedBytes, prev)
		assert.LessOrEqual(t, p.LoadedBytes, p.TotalBytes)
		prev = p.LoadedBytes
	}

	assert.Equal(t, progress[len(progress)-1].TotalBytes, progress[len(progress)-1].LoadedBytes)
}

func TestUploadFile_SynthesizesResultOnUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upload accepted"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	info, err := client.UploadFile(
		context.Background(), "/files/upload", "a.bin",
		strings.NewReader("xyz"), 3, nil, nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "a.bin", info.FileName)
	assert.Equal(t, int64(3), info.FileSize)
}

func TestUploadFile_ErrorNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"message":"Storage limit exceeded"}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	_, err := client.UploadFile(
		context.Background(), "/files/upload", "big.bin",
		strings.NewReader("xyz"), 3, nil, nil,
	)
	require.Error(t, err)
	assert.Equal(t, "Storage limit exceeded", ErrorMessage(err))
}
