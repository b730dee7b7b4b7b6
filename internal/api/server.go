package api

import (
	"errors"
	"io"
	"io/fs"
	"math"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/gridscan/internal/logger"
	"github.com/samcharles93/gridscan/pkg/filetype"
	"github.com/samcharles93/gridscan/pkg/iterator"
)

// Server exposes iterators as remote cursors. Every request on a cursor
// holds that cursor's lock, and queries that need an advanced iterator are
// refused with 409 instead of reaching the iterator.
type Server struct {
	store    *CursorStore
	registry *iterator.Registry
	log      logger.Logger
}

func NewServer(store *CursorStore, registry *iterator.Registry, log logger.Logger) *Server {
	if store == nil {
		store = NewCursorStore(0)
	}
	if registry == nil {
		registry = iterator.DefaultRegistry()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{store: store, registry: registry, log: log}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/formats", s.handleFormats)

	e.POST("/v1/cursors", s.handleOpen)
	e.POST("/v1/cursors/restore", s.handleRestore)
	e.GET("/v1/cursors/:id", s.handleGet)
	e.DELETE("/v1/cursors/:id", s.handleDelete)
	e.POST("/v1/cursors/:id/next", s.handleNext)
	e.GET("/v1/cursors/:id/data", s.handleData)
	e.POST("/v1/cursors/:id/clone", s.handleClone)
	e.GET("/v1/cursors/:id/state", s.handleState)
}

func (s *Server) handleFormats(c *echo.Context) error {
	out := make([]FormatInfo, 0, len(filetype.Types()))
	for _, ft := range filetype.Types() {
		out = append(out, FormatInfo{
			Name:      ft.String(),
			Tag:       ft.Tag(),
			Family:    ft.Family().String(),
			Available: s.registry.Status(ft) == nil,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"object": "list", "data": out})
}

func (s *Server) handleOpen(c *echo.Context) error {
	req, err := decodeJSON[OpenCursorReq](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Path == "" {
		return writeBadRequest(c, "path is required")
	}
	it, err := s.registry.Open(req.Path)
	if err != nil {
		return writeDomainError(c, err)
	}
	return s.add(c, it, 0)
}

func (s *Server) handleRestore(c *echo.Context) error {
	req, err := decodeJSON[RestoreCursorReq](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.State == "" {
		return writeBadRequest(c, "state is required")
	}
	it, err := s.registry.Deserialize(req.State)
	if err != nil {
		return writeDomainError(c, err)
	}
	return s.add(c, it, 0)
}

func (s *Server) add(c *echo.Context, it *iterator.Iterator, index int) error {
	cur, err := s.store.Add(it, index)
	if err != nil {
		_ = it.Close()
		return writeDomainError(c, err)
	}
	s.log.Debug("cursor created", "id", cur.id, "type", it.Filetype().String())
	return c.JSON(http.StatusOK, cursorResp(cur))
}

// lock finds the cursor named by the request and locks it. A cursor deleted
// while the request waited for the lock is reported as not found.
func (s *Server) lock(c *echo.Context) (*cursor, error) {
	cur, ok := s.store.Get(c.Param("id"))
	if !ok {
		return nil, writeNotFound(c, "cursor not found")
	}
	cur.mu.Lock()
	if cur.closed {
		cur.mu.Unlock()
		return nil, writeNotFound(c, "cursor not found")
	}
	return cur, nil
}

func (s *Server) handleGet(c *echo.Context) error {
	cur, err := s.lock(c)
	if cur == nil {
		return err
	}
	defer cur.mu.Unlock()
	return c.JSON(http.StatusOK, cursorResp(cur))
}

func (s *Server) handleDelete(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "cursor not found")
	}
	return c.JSON(http.StatusOK, DeleteCursorResp{ID: id, Object: "cursor.deleted", Deleted: true})
}

func (s *Server) handleNext(c *echo.Context) error {
	cur, err := s.lock(c)
	if cur == nil {
		return err
	}
	defer cur.mu.Unlock()

	err = cur.it.Next()
	if errors.Is(err, io.EOF) {
		return c.JSON(http.StatusOK, NextResp{ID: cur.id, Done: true})
	}
	if err != nil {
		s.log.Error("advance failed", "id", cur.id, "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}
	cur.index++
	info := Describe(cur.it, cur.index)
	return c.JSON(http.StatusOK, NextResp{ID: cur.id, Field: &info})
}

func (s *Server) handleData(c *echo.Context) error {
	cur, err := s.lock(c)
	if cur == nil {
		return err
	}
	defer cur.mu.Unlock()
	if !cur.it.Advanced() {
		return writeNotAdvanced(c)
	}

	precision := c.QueryParam("precision")
	if precision == "" {
		precision = "f64"
	}
	n := cur.it.Grid().Size()
	var (
		values  = make([]float64, n)
		missing int
	)
	switch precision {
	case "f64":
		missing, err = cur.it.ReadField(values)
	case "f32":
		buf := make([]float32, n)
		missing, err = cur.it.ReadFieldF(buf)
		for i, v := range buf {
			values[i] = float64(v)
		}
	default:
		return writeBadRequest(c, "precision must be f32 or f64")
	}
	if errors.Is(err, io.EOF) {
		return writeError(c, http.StatusConflict, "conflict_error", "cursor is past the last field", "exhausted")
	}
	if err != nil {
		s.log.Error("read failed", "id", cur.id, "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}
	return c.JSON(http.StatusOK, DataResp{ID: cur.id, Precision: precision, Missing: missing, Values: jsonValues(values)})
}

// jsonValues maps NaN, which JSON cannot carry, to null.
func jsonValues(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) {
			out[i] = &values[i]
		}
	}
	return out
}

func (s *Server) handleClone(c *echo.Context) error {
	cur, err := s.lock(c)
	if cur == nil {
		return err
	}
	if !cur.it.Advanced() {
		cur.mu.Unlock()
		return writeNotAdvanced(c)
	}
	it, err := cur.it.Clone()
	index := cur.index
	cur.mu.Unlock()
	if err != nil {
		return writeDomainError(c, err)
	}
	return s.add(c, it, index)
}

func (s *Server) handleState(c *echo.Context) error {
	cur, err := s.lock(c)
	if cur == nil {
		return err
	}
	defer cur.mu.Unlock()
	if !cur.it.Advanced() {
		return writeNotAdvanced(c)
	}
	return c.JSON(http.StatusOK, StateResp{ID: cur.id, State: cur.it.Serialize()})
}

// cursorResp must be called with cur locked.
func cursorResp(cur *cursor) CursorResp {
	resp := CursorResp{
		ID:       cur.id,
		Object:   "cursor",
		Filetype: cur.it.Filetype().String(),
		Advanced: cur.it.Advanced(),
	}
	if cur.it.HasField() {
		info := Describe(cur.it, cur.index)
		resp.Field = &info
	}
	return resp
}

func writeDomainError(c *echo.Context, err error) error {
	status, typ := http.StatusInternalServerError, "server_error"
	switch {
	case errors.Is(err, iterator.ErrUnknownFormat), errors.Is(err, iterator.ErrNotCompiledIn):
		status, typ = http.StatusUnsupportedMediaType, "unsupported_format_error"
	case errors.Is(err, iterator.ErrInvalidDescription), errors.Is(err, ErrInvalidRequest):
		status, typ = http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, ErrTooManyCursors):
		status, typ = http.StatusTooManyRequests, "rate_limit_error"
	case errors.Is(err, fs.ErrNotExist):
		status, typ = http.StatusNotFound, "not_found_error"
	}
	return writeError(c, status, typ, err.Error(), "")
}
