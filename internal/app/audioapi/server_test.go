package audioapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"Newspods/internal/service/storage"

	"go.uber.org/zap/zaptest"
)

type memBucket struct {
	mu    sync.Mutex
	data  map[string]string
	lists int
	fail  bool
}

func (b *memBucket) List(context.Context) ([]storage.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists++
	if b.fail {
		return nil, errors.New("bucket unavailable")
	}
	var out []storage.Object
	for k, v := range b.data {
		out = append(out, storage.Object{Key: k, Name: strings.TrimPrefix(k, "audio/"), Size: int64(len(v)), ContentType: storage.ContentTypeOf(k, "")})
	}
	return out, nil
}

func (b *memBucket) Open(_ context.Context, key string, start, end int64) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.data[key]
	if end < 0 {
		end = int64(len(v)) - 1
	}
	return io.NopCloser(strings.NewReader(v[start : end+1])), nil
}

func newTestServer(t *testing.T, b *memBucket) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	srv := httptest.NewServer(New(storage.NewIndex(b, nil, logger), b, "Newspods", "audio/", logger).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestListAudios(t *testing.T) {
	srv := newTestServer(t, &memBucket{data: map[string]string{"audio/b.mp3": "bb", "audio/a.mp3": "a"}})
	resp := get(t, srv.URL+"/audios", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
	var got listResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Bucket != "Newspods" || got.Prefix != "audio/" || got.Count != 2 {
		t.Errorf("response = %+v", got)
	}
	if got.Files[0].Key != "audio/a.mp3" || got.Files[0].Name != "a.mp3" || got.Files[1].Size != 2 || got.Files[1].ContentType != "audio/mpeg" {
		t.Errorf("files = %+v", got.Files)
	}
}

func TestListAudiosFailure(t *testing.T) {
	srv := newTestServer(t, &memBucket{fail: true})
	resp := get(t, srv.URL+"/audios", nil)
	if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(body(t, resp), "Failed to list audio files") {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestStream(t *testing.T) {
	b := &memBucket{data: map[string]string{"audio/ep.mp3": "0123456789"}}
	srv := newTestServer(t, b)

	cases := []struct {
		name         string
		query        string
		rng          string
		status       int
		body         string
		contentRange string
	}{
		{"missing key", "", "", http.StatusBadRequest, `{"error":"Missing query param: key"}`, ""},
		{"unknown key", "?key=audio/none.mp3", "", http.StatusNotFound, `{"error":"Audio not found"}`, ""},
		{"whole", "?key=audio/ep.mp3", "", http.StatusOK, "0123456789", ""},
		{"closed range", "?key=audio/ep.mp3", "bytes=2-5", http.StatusPartialContent, "2345", "bytes 2-5/10"},
		{"open range", "?key=audio/ep.mp3", "bytes=7-", http.StatusPartialContent, "789", "bytes 7-9/10"},
		{"suffix", "?key=audio/ep.mp3", "bytes=-3", http.StatusPartialContent, "789", "bytes 7-9/10"},
		{"end clamped", "?key=audio/ep.mp3", "bytes=8-100", http.StatusPartialContent, "89", "bytes 8-9/10"},
		{"start past end", "?key=audio/ep.mp3", "bytes=10-", http.StatusRequestedRangeNotSatisfiable, "", "bytes */10"},
		{"inverted", "?key=audio/ep.mp3", "bytes=5-2", http.StatusRequestedRangeNotSatisfiable, "", "bytes */10"},
		{"other unit", "?key=audio/ep.mp3", "items=1-2", http.StatusOK, "0123456789", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := map[string]string{}
			if tc.rng != "" {
				h["Range"] = tc.rng
			}
			resp := get(t, srv.URL+"/stream"+tc.query, h)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if got := strings.TrimSpace(body(t, resp)); got != tc.body {
				t.Errorf("body = %q, want %q", got, tc.body)
			}
			if got := resp.Header.Get("Content-Range"); got != tc.contentRange {
				t.Errorf("Content-Range = %q, want %q", got, tc.contentRange)
			}
			if tc.status == http.StatusOK || tc.status == http.StatusPartialContent {
				if resp.Header.Get("Accept-Ranges") != "bytes" || resp.Header.Get("Content-Type") != "audio/mpeg" {
					t.Errorf("headers = %v", resp.Header)
				}
			}
		})
	}
}

func TestStreamRefreshesForFreshUpload(t *testing.T) {
	b := &memBucket{data: map[string]string{"audio/old.mp3": "x"}}
	srv := newTestServer(t, b)
	if resp := get(t, srv.URL+"/audios", nil); resp.StatusCode != http.StatusOK {
		t.Fatal(resp.Status)
	}
	b.mu.Lock()
	b.data["audio/new.mp3"] = "fresh"
	b.mu.Unlock()

	resp := get(t, srv.URL+"/stream?key=audio/new.mp3", nil)
	if resp.StatusCode != http.StatusOK || body(t, resp) != "fresh" {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHealthAndRefresh(t *testing.T) {
	b := &memBucket{data: map[string]string{"audio/a.mp3": "a", "audio/b.mp3": "b"}}
	srv := newTestServer(t, b)

	if got := strings.TrimSpace(body(t, get(t, srv.URL+"/healthz", nil))); got != `{"ok":true}` {
		t.Errorf("healthz = %s", got)
	}

	resp, err := http.Post(srv.URL+"/refresh-index", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := strings.TrimSpace(body(t, resp)); got != `{"count":2,"ok":true}` {
		t.Errorf("refresh = %s", got)
	}

	b.mu.Lock()
	b.fail = true
	b.mu.Unlock()
	resp2, err := http.Post(srv.URL+"/refresh-index", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", resp2.StatusCode)
	}
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t, &memBucket{})
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
