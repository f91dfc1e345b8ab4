package handlers

import (
	"context"
	"strings"

	"github.com/edgard/attendancebot/internal/port/chat"
)

// HandlerFunc handles one command. args is the text after the command word.
type HandlerFunc func(ctx context.Context, msg chat.Message, args string) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// RegisteredHandler represents a command handler with its middleware.
type RegisteredHandler struct {
	Handler    HandlerFunc
	Middleware []Middleware
}

// RegisterAllCommands returns all available bot commands keyed by command
// name without the leading slash.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["start"] = RegisteredHandler{Handler: NewStartHandler(deps)}
	handlers["help"] = RegisteredHandler{Handler: NewHelpHandler(deps)}
	handlers["register"] = RegisteredHandler{Handler: NewRegisterHandler(deps)}
	handlers["visit"] = RegisteredHandler{Handler: NewVisitHandler(deps)}
	handlers["visits"] = RegisteredHandler{Handler: NewVisitsHandler(deps)}

	adminMiddleware := []Middleware{AdminOnly(deps)}

	handlers["students"] = RegisteredHandler{
		Handler:    NewStudentsHandler(deps),
		Middleware: adminMiddleware,
	}

	return handlers
}

// Router maps message text to handlers.
type Router struct {
	handlers    map[string]HandlerFunc
	botUsername string
}

// NewRouter registers every command with its middleware applied.
func NewRouter(deps HandlerDeps) *Router {
	r := &Router{handlers: make(map[string]HandlerFunc), botUsername: deps.BotUsername}
	for name, reg := range RegisterAllCommands(deps) {
		h := reg.Handler
		for i := len(reg.Middleware) - 1; i >= 0; i-- {
			h = reg.Middleware[i](h)
		}
		r.handlers[name] = h
	}
	return r
}

// Route finds the handler for text. ok is false when text is not a known
// command or is addressed to a different bot.
func (r *Router) Route(text string) (command, args string, h HandlerFunc, ok bool) {
	command, mention, args := ParseCommand(text)
	if command == "" {
		return "", "", nil, false
	}
	if mention != "" && r.botUsername != "" && !strings.EqualFold(mention, r.botUsername) {
		return "", "", nil, false
	}
	h, ok = r.handlers[command]
	return command, args, h, ok
}

// Commands lists the registered command names.
func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// ParseCommand splits "/cmd@botname rest of text" into "cmd", "botname" and
// "rest of text". command is empty when text is not a command.
func ParseCommand(text string) (command, mention, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", ""
	}

	word, rest, _ := strings.Cut(text[1:], " ")
	word, mention, _ = strings.Cut(word, "@")
	return strings.ToLower(word), mention, strings.TrimSpace(rest)
}
