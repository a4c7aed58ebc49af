// Package router turns incoming chat messages into command invocations:
// tokenizing, alias lookup, middleware and a bounded worker pool.
package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"floatwatch/internal/runtime/supervisor"
	"floatwatch/internal/transport"
	"floatwatch/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
	// Hidden keeps the command out of the menu and /help listing.
	Hidden bool
}

// Request is one routed command.
type Request struct {
	Message transport.Message
	Chat    transport.ChatTarget
	FromID  int64
	Command string

	Args    []string // positional arguments (flags removed)
	RawArgs []string // every token after the command word
	RawText string   // text after the command word, untokenized
	Flags   map[string]string
	Bools   map[string]bool
	ReqID   string

	Sender transport.Sender
	Logger logx.Logger
}

// Reply sends HTML text back to the originating chat.
func (r *Request) Reply(ctx context.Context, html string) error {
	_, err := r.Sender.SendText(ctx, r.Chat, html, &transport.SendOptions{ParseMode: "HTML", DisablePreview: true})
	return err
}

// Manager owns the command table and dispatches updates to it.
type Manager struct {
	mu       sync.RWMutex
	commands map[string]*Command // name and aliases
	ordered  []Command

	log         logx.Logger
	sender      transport.Sender
	middlewares []Middleware
	workers     int

	jobs chan func()
}

type Option func(*Manager)

// WithMiddleware appends middleware that runs inside the built-in
// panic/log/timeout chain.
func WithMiddleware(mw ...Middleware) Option {
	return func(m *Manager) { m.middlewares = append(m.middlewares, mw...) }
}

func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

func NewManager(log logx.Logger, sender transport.Sender, opts ...Option) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &Manager{
		commands: map[string]*Command{},
		log:      log,
		sender:   sender,
		workers:  max(2, runtime.NumCPU()),
		jobs:     make(chan func(), 256),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetCommands replaces the command table. A /help command is always added.
func (m *Manager) SetCommands(cmds []Command) {
	cmds = append(cmds, Command{
		Name:        "help",
		Aliases:     []string{"h", "start"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, m.helpText(req.Args))
		},
	})

	table := map[string]*Command{}
	ordered := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		name := sanitizeCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		cc := c
		cc.Name = name
		table[name] = &cc
		ordered = append(ordered, cc)
	}
	// Aliases never shadow a real command name.
	for i := range ordered {
		c := table[ordered[i].Name]
		for _, a := range c.Aliases {
			if a = sanitizeCommand(a); a != "" {
				if _, taken := table[a]; !taken {
					table[a] = c
				}
			}
		}
	}

	m.mu.Lock()
	m.commands = table
	m.ordered = ordered
	m.mu.Unlock()
}

// MenuCommands lists the visible commands for the platform menu.
func (m *Manager) MenuCommands() []transport.BotCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]transport.BotCommand, 0, len(m.ordered))
	for _, c := range m.ordered {
		if c.Hidden {
			continue
		}
		out = append(out, transport.BotCommand{Command: c.Name, Description: strings.ReplaceAll(c.Description, "\n", " ")})
	}
	return out
}

func (m *Manager) lookup(word string) (Command, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commands[strings.ToLower(word)]
	if !ok {
		return Command{}, false
	}
	return *c, true
}

// DispatchLoop routes updates until ctx is done or updates is closed.
func (m *Manager) DispatchLoop(ctx context.Context, updates <-chan transport.Update) error {
	sup := supervisor.New(ctx, supervisor.WithLogger(m.log))
	m.log.Info("command dispatcher started", logx.Int("workers", m.workers), logx.Int("job_queue_cap", cap(m.jobs)))

	for i := 0; i < m.workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-m.jobs:
					m.runJob(idx, job)
				}
			}
		}, supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}
	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Message != nil {
				m.route(ctx, *up.Message)
			}
		}
	}
}

func (m *Manager) runJob(worker int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in command job", logx.Int("worker", worker), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()
	job()
}

func (m *Manager) route(ctx context.Context, msg transport.Message) {
	req, cmd, ok := m.build(msg)
	if !ok {
		return
	}
	if cmd.Handle == nil {
		_ = req.Reply(ctx, "Unknown command. Try <code>/help</code>.")
		return
	}

	final := Chain(cmd.Handle, append([]Middleware{
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(cmd.Timeout),
	}, m.middlewares...)...)

	select {
	case m.jobs <- func() { _ = final(ctx, req) }:
	default:
		_ = req.Reply(ctx, "Busy, try again in a moment.")
	}
}

// build parses msg into a request. cmd.Handle is nil for unknown commands;
// ok is false when msg is not a command at all.
func (m *Manager) build(msg transport.Message) (*Request, Command, bool) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return nil, Command{}, false
	}
	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}
	word := strings.TrimPrefix(head, "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return nil, Command{}, false
	}

	raw := tokenize(rest)
	pos, flags, bools := parseFlags(raw)
	cmd, _ := m.lookup(word)
	rid := uuid.NewString()[:8]

	req := &Request{
		Message: msg,
		Chat:    transport.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID},
		FromID:  msg.FromID,
		Command: cmd.Name,
		Args:    pos,
		RawArgs: raw,
		RawText: strings.TrimSpace(rest),
		Flags:   flags,
		Bools:   bools,
		ReqID:   rid,
		Sender:  m.sender,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}
	return req, cmd, true
}
