package server

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Handler maps one inbound message to an optional reply.
type Handler func(msg string) (reply string, ok bool)

const (
	ModeEcho  = "echo"
	ModeUpper = "upper"
	ModePrint = "print"
)

func EchoHandler(msg string) (string, bool) {
	return msg, true
}

func UpperHandler(msg string) (string, bool) {
	return strings.ToUpper(msg), true
}

// PrintHandler writes each message on its own line to out and never replies.
func PrintHandler(out io.Writer) Handler {
	var mu sync.Mutex
	return func(msg string) (string, bool) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintln(out, msg)
		return "", false
	}
}

// HandlerFactory builds a Handler for one listener. out receives any local
// output the handler produces.
type HandlerFactory func(out io.Writer) Handler

var (
	handlersMu sync.RWMutex
	handlers   = map[string]HandlerFactory{}
)

func init() {
	RegisterHandler(ModeEcho, func(io.Writer) Handler { return EchoHandler })
	RegisterHandler(ModeUpper, func(io.Writer) Handler { return UpperHandler })
	RegisterHandler(ModePrint, PrintHandler)
}

// RegisterHandler adds or replaces the factory for mode.
func RegisterHandler(mode string, factory HandlerFactory) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[strings.ToLower(strings.TrimSpace(mode))] = factory
}

// Modes lists registered mode names in sorted order.
func Modes() []string {
	handlersMu.RLock()
	defer handlersMu.RUnlock()
	out := make([]string, 0, len(handlers))
	for mode := range handlers {
		out = append(out, mode)
	}
	sort.Strings(out)
	return out
}

// HandlerFor resolves a serve mode name. An empty mode means echo.
func HandlerFor(mode string, out io.Writer) (Handler, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = ModeEcho
	}
	handlersMu.RLock()
	factory, ok := handlers[mode]
	handlersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown serve mode %q", mode)
	}
	if out == nil {
		out = io.Discard
	}
	return factory(out), nil
}
