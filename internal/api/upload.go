package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ChunkSize is the default upload chunk size (1 MiB).
const ChunkSize = 1 << 20

// UploadProgress reports cumulative bytes sent for one upload.
type UploadProgress struct {
	LoadedBytes int64
	TotalBytes  int64
}

// ProgressFunc receives progress updates. Callbacks fire synchronously from
// the upload goroutine, once per chunk (chunked path) or per write (simple
// path), with monotonically non-decreasing LoadedBytes.
type ProgressFunc func(UploadProgress)

// ChunkedUploadResult is the terminal result of UploadInChunks.
type ChunkedUploadResult struct {
	Success  bool
	FileName string
	Size     int64
}

// UploadInChunks uploads size bytes from r to endpoint as fixed-size
// multipart chunks, strictly sequentially: chunk i+1 is never sent before
// chunk i's response is observed, so progress is deterministic. Each chunk
// carries the form fields "file", "fileName", "chunkIndex", "totalChunks"
// plus the caller's fields. A failed chunk fails the whole operation — there
// is no partial-success resume; the caller restarts from chunk 0.
//
// A zero-byte file sends no chunks and still succeeds with Size 0.
func (c *Client) UploadInChunks(
	ctx context.Context,
	endpoint, fileName string,
	r io.Reader,
	size int64,
	fields map[string]string,
	onProgress ProgressFunc,
) (*ChunkedUploadResult, error) {
	fileName = norm.NFC.String(fileName)
	chunkSize := c.chunkSize
	totalChunks := int((size + chunkSize - 1) / chunkSize)

	c.logger.Info("starting chunked upload",
		slog.String("endpoint", endpoint),
		slog.String("file_name", fileName),
		slog.Int64("size", size),
		slog.Int("total_chunks", totalChunks),
	)

	var uploadedBytes int64

	buf := make([]byte, chunkSize)

	for chunkIndex := 0; chunkIndex < totalChunks; chunkIndex++ {
		chunkLen := size - int64(chunkIndex)*chunkSize
		if chunkLen > chunkSize {
			chunkLen = chunkSize
		}

		if _, err := io.ReadFull(r, buf[:chunkLen]); err != nil {
			return nil, &ChunkUploadError{
				Chunk: chunkIndex + 1,
				Total: totalChunks,
				Err:   fmt.Errorf("reading chunk: %w", err),
			}
		}

		if err := c.uploadChunk(ctx, endpoint, fileName, buf[:chunkLen], chunkIndex, totalChunks, fields); err != nil {
			c.logger.Error("chunk upload failed",
				slog.String("file_name", fileName),
				slog.Int("chunk_index", chunkIndex),
				slog.Int("total_chunks", totalChunks),
				slog.String("error", err.Error()),
			)

			return nil, &ChunkUploadError{Chunk: chunkIndex + 1, Total: totalChunks, Err: err}
		}

		uploadedBytes += chunkLen

		if onProgress != nil {
			onProgress(UploadProgress{LoadedBytes: uploadedBytes, TotalBytes: size})
		}

		c.logger.Debug("chunk uploaded",
			slog.Int("chunk_index", chunkIndex),
			slog.Int64("uploaded_bytes", uploadedBytes),
		)
	}

	c.logger.Info("chunked upload complete",
		slog.String("file_name", fileName),
		slog.Int64("size", size),
	)

	return &ChunkedUploadResult{Success: true, FileName: fileName, Size: size}, nil
}

// uploadChunk submits one chunk through the request pipeline, so the bearer
// header and 401 refresh handling apply per chunk.
func (c *Client) uploadChunk(
	ctx context.Context,
	endpoint, fileName string,
	chunk []byte,
	chunkIndex, totalChunks int,
	fields map[string]string,
) error {
	payload, contentType, err := encodeChunkForm(fileName, chunk, chunkIndex, totalChunks, fields)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, endpoint, payload, contentType, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
		return fmt.Errorf("draining chunk response: %w", drainErr)
	}

	return nil
}

// encodeChunkForm builds the multipart body for one chunk. Caller fields are
// written in sorted key order so request bodies are reproducible; empty
// values are skipped, matching the convention that absent metadata is not
// transmitted.
func encodeChunkForm(
	fileName string, chunk []byte, chunkIndex, totalChunks int, fields map[string]string,
) ([]byte, string, error) {
	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}

	if _, err := part.Write(chunk); err != nil {
		return nil, "", fmt.Errorf("writing chunk data: %w", err)
	}

	meta := map[string]string{
		"fileName":    fileName,
		"chunkIndex":  strconv.Itoa(chunkIndex),
		"totalChunks": strconv.Itoa(totalChunks),
	}

	for k, v := range meta {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if fields[k] == "" {
			continue
		}

		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return body.Bytes(), w.FormDataContentType(), nil
}

// progressReader counts bytes as the transport consumes them, driving live
// progress for the simple upload path.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)

	if n > 0 {
		p.read += int64(n)

		if p.onProgress != nil {
			p.onProgress(UploadProgress{LoadedBytes: p.read, TotalBytes: p.total})
		}
	}

	return n, err
}

// UploadFile uploads a whole file as a single multipart POST with byte-level
// progress from the transport. It is the fallback for servers without
// chunked-upload support. Like the chunk session URLs in resumable schemes,
// this path bypasses the 401-refresh pipeline: the body reader is consumed
// as it streams and cannot be replayed, so a stale token surfaces as a
// normalized error instead of a transparent retry.
func (c *Client) UploadFile(
	ctx context.Context,
	endpoint, fileName string,
	r io.Reader,
	size int64,
	fields map[string]string,
	onProgress ProgressFunc,
) (*FileInfo, error) {
	fileName = norm.NFC.String(fileName)

	c.logger.Info("starting simple upload",
		slog.String("endpoint", endpoint),
		slog.String("file_name", fileName),
		slog.Int64("size", size),
	)

	chunk, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("api: reading upload source: %w", err)
	}

	payload, contentType, err := encodeSimpleForm(fileName, chunk, fields)
	if err != nil {
		return nil, err
	}

	// Progress is measured against the encoded form, which is what actually
	// crosses the wire (slightly larger than the file itself).
	body := &progressReader{
		r:          bytes.NewReader(payload),
		total:      int64(len(payload)),
		onProgress: onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("api: creating upload request: %w", err)
	}

	if tok := c.store.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.ContentLength = int64(len(payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.handleUploadResponse(resp, fileName, size)
}

// handleUploadResponse maps 200/201 to success and everything else to a
// normalized failure. A success body that is not valid JSON is tolerated —
// the result is synthesized from what the client already knows.
func (c *Client) handleUploadResponse(resp *http.Response, fileName string, size int64) (*FileInfo, error) {
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var info FileInfo
		if decErr := json.NewDecoder(resp.Body).Decode(&info); decErr != nil {
			c.logger.Debug("upload response not parseable, synthesizing result",
				slog.String("error", decErr.Error()),
			)

			return &FileInfo{FileName: fileName, FileSize: size}, nil
		}

		return &info, nil
	}

	apiErr := readAPIError(resp)

	c.logger.Error("simple upload failed",
		slog.String("file_name", fileName),
		slog.Int("status", resp.StatusCode),
	)

	return nil, apiErr
}

// encodeSimpleForm builds the multipart body for a whole-file upload.
func encodeSimpleForm(fileName string, data []byte, fields map[string]string) ([]byte, string, error) {
	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("writing file data: %w", err)
	}

	if err := w.WriteField("fileName", fileName); err != nil {
		return nil, "", fmt.Errorf("writing fileName field: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if fields[k] == "" {
			continue
		}

		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return body.Bytes(), w.FormDataContentType(), nil
}
