package api

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/samcharles93/gridscan/internal/extra"
	"github.com/samcharles93/gridscan/pkg/filetype"
	"github.com/samcharles93/gridscan/pkg/iterator"
)

func newTestEcho(max int, opts ...iterator.Option) *echo.Echo {
	server := NewServer(NewCursorStore(max), iterator.NewRegistry(opts...), nil)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %s: %v", rec.Body.String(), err)
	}
	return out
}

func writeTestEXT(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ext")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	w := extra.NewWriter(f, binary.LittleEndian, 4)
	for i := 0; i < n; i++ {
		h := extra.Header{Date: 20240101, Code: int64(167 + i), Level: 0}
		if err := w.Write(h, []float64{float64(i), 1, 2, -9e33}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return path
}

func openBody(path string) string {
	b, _ := json.Marshal(OpenCursorReq{Path: path})
	return string(b)
}

func TestDeletedCursorNotFound(t *testing.T) {
	t.Parallel()

	store := NewCursorStore(0)
	e := echo.New()
	e.Use(middleware.Recover())
	NewServer(store, iterator.NewRegistry(), nil).Register(e)
	path := writeTestEXT(t, 3)

	opened := decodeBody[CursorResp](t, doJSON(t, e, http.MethodPost, "/v1/cursors", openBody(path)))
	doJSON(t, e, http.MethodPost, "/v1/cursors/"+opened.ID+"/next", "")

	// A request that looked the cursor up before a concurrent delete finds
	// it released once it holds the lock.
	cur, ok := store.Get(opened.ID)
	if !ok {
		t.Fatalf("cursor %s not stored", opened.ID)
	}
	cur.release()
	for _, req := range []struct{ method, path string }{
		{http.MethodGet, ""},
		{http.MethodPost, "/next"},
		{http.MethodGet, "/data"},
		{http.MethodPost, "/clone"},
		{http.MethodGet, "/state"},
	} {
		if rec := doJSON(t, e, req.method, "/v1/cursors/"+opened.ID+req.path, ""); rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s on released cursor: got %d want 404 body=%s", req.method, req.path, rec.Code, rec.Body.String())
		}
	}
	if !store.Delete(opened.ID) {
		t.Fatal("delete of released cursor failed")
	}

	opened = decodeBody[CursorResp](t, doJSON(t, e, http.MethodPost, "/v1/cursors", openBody(path)))
	var wg sync.WaitGroup
	codes := make(chan int, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- doJSON(t, e, http.MethodPost, "/v1/cursors/"+opened.ID+"/next", "").Code
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		codes <- doJSON(t, e, http.MethodDelete, "/v1/cursors/"+opened.ID, "").Code
	}()
	wg.Wait()
	close(codes)
	for code := range codes {
		if code != http.StatusOK && code != http.StatusNotFound {
			t.Fatalf("request racing delete: got status %d want 200 or 404", code)
		}
	}
	if rec := doJSON(t, e, http.MethodPost, "/v1/cursors/"+opened.ID+"/next", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("next after delete: got %d want 404", rec.Code)
	}
}

func TestCursorLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	openRec := doJSON(t, e, http.MethodPost, "/v1/cursors", openBody(writeTestEXT(t, 2)))
	if openRec.Code != http.StatusOK {
		t.Fatalf("open status: got %d body=%s", openRec.Code, openRec.Body.String())
	}
	opened := decodeBody[CursorResp](t, openRec)
	if !strings.HasPrefix(opened.ID, "cur_") {
		t.Fatalf("unexpected cursor id %q", opened.ID)
	}
	if opened.Advanced || opened.Field != nil || opened.Filetype != "EXT" {
		t.Fatalf("unexpected fresh cursor: %+v", opened)
	}

	for _, path := range []string{"/data", "/state"} {
		rec := doJSON(t, e, http.MethodGet, "/v1/cursors/"+opened.ID+path, "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("%s before next: got %d want 409", path, rec.Code)
		}
	}
	if rec := doJSON(t, e, http.MethodPost, "/v1/cursors/"+opened.ID+"/clone", ""); rec.Code != http.StatusConflict {
		t.Fatalf("clone before next: got %d want 409", rec.Code)
	}

	nextRec := doJSON(t, e, http.MethodPost, "/v1/cursors/"+opened.ID+"/next", "")
	if nextRec.Code != http.StatusOK {
		t.Fatalf("next status: got %d body=%s", nextRec.Code, nextRec.Body.String())
	}
	next := decodeBody[NextResp](t, nextRec)
	if next.Done || next.Field == nil {
		t.Fatalf("unexpected next: %+v", next)
	}
	if next.Field.Variable != "var167" || next.Field.Values != 4 {
		t.Fatalf("unexpected field: %+v", next.Field)
	}

	dataRec := doJSON(t, e, http.MethodGet, "/v1/cursors/"+opened.ID+"/data?precision=f32", "")
	if dataRec.Code != http.StatusOK {
		t.Fatalf("data status: got %d body=%s", dataRec.Code, dataRec.Body.String())
	}
	data := decodeBody[DataResp](t, dataRec)
	if data.Missing != 1 || len(data.Values) != 4 {
		t.Fatalf("unexpected data: missing=%d values=%d", data.Missing, len(data.Values))
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/cursors/"+opened.ID+"/data?precision=f16", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad precision: got %d want 400", rec.Code)
	}

	stateRec := doJSON(t, e, http.MethodGet, "/v1/cursors/"+opened.ID+"/state", "")
	state := decodeBody[StateResp](t, stateRec)
	if !strings.HasPrefix(state.State, "gridscan::EXT advanced ") {
		t.Fatalf("unexpected state %q", state.State)
	}

	doJSON(t, e, http.MethodPost, "/v1/cursors/"+opened.ID+"/next", "")
	doneRec := doJSON(t, e, http.MethodPost, "/v1/cursors/"+opened.ID+"/next", "")
	if done := decodeBody[NextResp](t, doneRec); !done.Done {
		t.Fatalf("expected done after last field: %s", doneRec.Body.String())
	}

	body, _ := json.Marshal(RestoreCursorReq{State: state.State})
	restoreRec := doJSON(t, e, http.MethodPost, "/v1/cursors/restore", string(body))
	if restoreRec.Code != http.StatusOK {
		t.Fatalf("restore status: got %d body=%s", restoreRec.Code, restoreRec.Body.String())
	}
	restored := decodeBody[CursorResp](t, restoreRec)
	if restored.Field == nil || restored.Field.Variable != "var167" {
		t.Fatalf("restored cursor on wrong field: %s", restoreRec.Body.String())
	}

	cloneRec := doJSON(t, e, http.MethodPost, "/v1/cursors/"+restored.ID+"/clone", "")
	if cloneRec.Code != http.StatusOK {
		t.Fatalf("clone status: got %d body=%s", cloneRec.Code, cloneRec.Body.String())
	}
	if clone := decodeBody[CursorResp](t, cloneRec); clone.ID == restored.ID {
		t.Fatalf("clone reused cursor id")
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/cursors/"+opened.ID, "")
	if !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete response missing deleted=true: %s", delRec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/cursors/"+opened.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(1, iterator.WithDisabled(filetype.EXT))
	junk := filepath.Join(t.TempDir(), "junk")
	if err := os.WriteFile(junk, []byte("nothing to see here at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing path", http.MethodPost, "/v1/cursors", `{}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/v1/cursors", `{"path":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/cursors", `{"file":"x"}`, http.StatusBadRequest},
		{"no such file", http.MethodPost, "/v1/cursors", openBody(filepath.Join(t.TempDir(), "absent")), http.StatusNotFound},
		{"unknown format", http.MethodPost, "/v1/cursors", openBody(junk), http.StatusUnsupportedMediaType},
		{"disabled format", http.MethodPost, "/v1/cursors", openBody(writeTestEXT(t, 1)), http.StatusUnsupportedMediaType},
		{"invalid state", http.MethodPost, "/v1/cursors/restore", `{"state":"bogus advanced x"}`, http.StatusBadRequest},
		{"excluded state", http.MethodPost, "/v1/cursors/restore", `{"state":"gridscan::NCZarr advanced \"x\" 1"}`, http.StatusUnsupportedMediaType},
		{"unknown cursor", http.MethodPost, "/v1/cursors/cur_missing/next", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := doJSON(t, e, tc.method, tc.path, tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s: got %d want %d body=%s", tc.name, rec.Code, tc.want, rec.Body.String())
		}
	}
}

func TestCursorLimit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(1)
	path := writeTestEXT(t, 1)
	if rec := doJSON(t, e, http.MethodPost, "/v1/cursors", openBody(path)); rec.Code != http.StatusOK {
		t.Fatalf("first open: got %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodPost, "/v1/cursors", openBody(path)); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second open: got %d want 429", rec.Code)
	}
}

func TestFormats(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0, iterator.WithDisabled(filetype.IEG))
	rec := doJSON(t, e, http.MethodGet, "/v1/formats", "")
	var body struct {
		Data []FormatInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != len(filetype.Types()) {
		t.Fatalf("format count: got %d want %d", len(body.Data), len(filetype.Types()))
	}
	for _, f := range body.Data {
		switch f.Name {
		case "IEG", "NCZarr":
			if f.Available {
				t.Fatalf("%s reported available", f.Name)
			}
		case "GRIB2":
			if !f.Available || f.Tag != "gridscan::GRIB2" || f.Family != "grib" {
				t.Fatalf("unexpected GRIB2 entry: %+v", f)
			}
		}
	}
}
