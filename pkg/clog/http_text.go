package clog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// HTTPTextHandler is a colored, human oriented handler for local runs. The
// request columns (method, route, status, user) lead the line, the message
// and request error follow, and the remaining attributes are listed below.
type HTTPTextHandler struct {
	cfg    TextHandlerConfig
	prefix string
	attrs  []slog.Attr
	w      io.Writer
	mu     *sync.Mutex
}

type TextHandlerConfig struct {
	Color bool
	Level slog.Leveler
}

type TextHandlerOption func(*TextHandlerConfig)

func WithColor(c bool) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Color = c
	}
}

func WithLevel(level slog.Leveler) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Level = level
	}
}

func NewHTTPTextHandler(w io.Writer, opts ...TextHandlerOption) *HTTPTextHandler {
	cfg := TextHandlerConfig{Color: true, Level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HTTPTextHandler{cfg: cfg, w: w, mu: &sync.Mutex{}}
}

func (h *HTTPTextHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.cfg.Level.Level()
}

func (h *HTTPTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &nh
}

func (h *HTTPTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func (h *HTTPTextHandler) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if h.cfg.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func levelColor(l slog.Level) color.Attribute {
	switch {
	case l >= slog.LevelError:
		return color.FgRed
	case l >= slog.LevelWarn:
		return color.FgYellow
	case l >= slog.LevelInfo:
		return color.FgBlue
	}
	return color.FgCyan
}

func (h *HTTPTextHandler) Handle(_ context.Context, record slog.Record) error {
	kv := make(map[string]slog.Value, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		flatten(kv, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		flatten(kv, h.prefix, a)
		return true
	})

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s ", record.Time.Format(time.RFC3339))
	h.paint(levelColor(record.Level)).Fprintf(&buf, "%-5s ", record.Level)

	if _, ok := kv[RouteKey]; ok {
		delete(kv, PathKey)
	}
	for _, key := range []string{MethodKey, RouteKey, PathKey, StatusKey, UserKey} {
		if v, ok := kv[key]; ok {
			fmt.Fprintf(&buf, "%s ", v)
			delete(kv, key)
		}
	}
	h.paint(color.FgGreen).Fprint(&buf, record.Message)
	if e, ok := kv[ErrorKey]; ok {
		delete(kv, ErrorKey)
		h.paint(color.FgRed).Fprintf(&buf, " %s", e)
	}
	buf.WriteByte('\n')

	stack, hasStack := kv[StackKey]
	delete(kv, StackKey)
	for _, k := range slices.Sorted(maps.Keys(kv)) {
		fmt.Fprintf(&buf, "    %s=%s\n", k, kv[k])
	}
	if hasStack {
		for line := range strings.Lines(stack.String()) {
			fmt.Fprintf(&buf, "      %s", line)
		}
		if !strings.HasSuffix(stack.String(), "\n") {
			buf.WriteByte('\n')
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// flatten stores a under prefix+key, expanding groups into dotted keys.
func flatten(kv map[string]slog.Value, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		kv[prefix+a.Key] = v
		return
	}
	if a.Key != "" {
		prefix += a.Key + "."
	}
	for _, ga := range v.Group() {
		flatten(kv, prefix, ga)
	}
}
