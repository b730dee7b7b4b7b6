package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// palette holds the escape sequences of one output style. The zero palette
// writes plain text.
type palette struct {
	reset, dim, attrs, bold string
	levels                  [4]string
}

var colored = palette{
	reset: colorReset,
	dim:   colorGray,
	attrs: colorCyan,
	bold:  colorBold,
	// debug, info, warn, error
	levels: [4]string{colorGray, colorBlue, colorYellow, colorRed},
}

func (p palette) level(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return p.levels[3]
	case l >= slog.LevelWarn:
		return p.levels[2]
	case l >= slog.LevelInfo:
		return p.levels[1]
	default:
		return p.levels[0]
	}
}

// PrettyHandler is a slog.Handler for terminals:
//
//	[2024-01-02 15:04:05] INFO  opened iterator path=a.grb type=GRIB2
type PrettyHandler struct {
	level slog.Leveler
	pal   palette

	mu *sync.Mutex
	w  io.Writer

	// prefix is the dotted group path for attributes added later.
	prefix string
	// preformatted holds attributes from WithAttrs, already rendered.
	preformatted []byte
}

// NewPrettyHandler creates a colored PrettyHandler. A nil opts logs at info.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{level: slog.LevelInfo, pal: colored, mu: &sync.Mutex{}, w: w}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// NoColor returns a copy of h that writes no escape sequences.
func (h *PrettyHandler) NoColor() *PrettyHandler {
	c := *h
	c.pal = palette{}
	return &c
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	p := h.pal
	buf := make([]byte, 0, 256)

	buf = append(buf, p.dim...)
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, time.DateTime)
	buf = append(buf, ']')
	buf = append(buf, p.reset...)
	buf = append(buf, ' ')

	buf = append(buf, p.level(r.Level)...)
	buf = append(buf, p.bold...)
	buf = append(buf, fmt.Sprintf("%-5s", r.Level.String())...)
	buf = append(buf, p.reset...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	if len(h.preformatted) > 0 || r.NumAttrs() > 0 {
		buf = append(buf, p.attrs...)
		buf = append(buf, h.preformatted...)
		r.Attrs(func(a slog.Attr) bool {
			buf = appendAttr(buf, a, h.prefix)
			return true
		})
		buf = append(buf, p.reset...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	c.preformatted = append([]byte(nil), h.preformatted...)
	for _, a := range attrs {
		c.preformatted = appendAttr(c.preformatted, a, h.prefix)
	}
	return &c
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// appendAttr renders " key=value". Group values flatten into dotted keys.
func appendAttr(buf []byte, a slog.Attr, prefix string) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			buf = appendAttr(buf, g, prefix)
		}
		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	switch a.Value.Kind() {
	case slog.KindString:
		buf = appendString(buf, a.Value.String())
	case slog.KindTime:
		buf = a.Value.Time().AppendFormat(buf, time.RFC3339)
	case slog.KindDuration:
		buf = append(buf, a.Value.Duration().String()...)
	default:
		if err, ok := a.Value.Any().(error); ok {
			return appendString(buf, err.Error())
		}
		buf = append(buf, a.Value.String()...)
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	if needsQuoting(s) {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsAny(s, " \t\n\"=")
}
