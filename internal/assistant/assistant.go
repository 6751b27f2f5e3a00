// Package assistant is the client-facing facade: one inbound message in,
// one reply with optional media and quick-reply buttons out. It owns the
// per-user turn serialization and the typing indication around every model
// await.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/zamanbank/assistant/internal/conversation"
	"github.com/zamanbank/assistant/internal/orchestrator"
	"github.com/zamanbank/assistant/internal/tools"
)

// SessionOpener is the fixed message a fresh session submits on behalf of
// the user, prompting the capability rundown.
const SessionOpener = "Список функционала"

// suggestionWindow is how many recent turns feed quick-reply generation.
const suggestionWindow = 10

// Replier runs one orchestrated turn. Satisfied by *orchestrator.Orchestrator.
type Replier interface {
	Respond(ctx context.Context, conv *conversation.Conversation) (orchestrator.Reply, error)
}

// Suggester produces quick-reply options. Satisfied by *quickreply.Generator.
type Suggester interface {
	Generate(ctx context.Context, turns []conversation.Turn) []string
}

// Response is the complete product of one turn, ready for the transport.
type Response struct {
	Text         string   `json:"text"`
	Media        []string `json:"media,omitempty"`
	QuickReplies []string `json:"quick_replies,omitempty"`
}

// Assistant wires the conversation store, orchestrator and quick-reply
// generator behind a transport-agnostic surface.
//
// Safe for concurrent use; turns of the same user are serialized, turns of
// different users proceed in parallel.
type Assistant struct {
	store     *conversation.Store
	replier   Replier
	suggester Suggester
	notifier  Notifier
	logger    *slog.Logger
	heartbeat time.Duration
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithNotifier enables typing indication through n.
func WithNotifier(n Notifier) Option {
	return func(a *Assistant) { a.notifier = n }
}

// WithHeartbeat overrides the typing refresh interval.
func WithHeartbeat(d time.Duration) Option {
	return func(a *Assistant) {
		if d > 0 {
			a.heartbeat = d
		}
	}
}

// New creates an Assistant. A nil logger uses slog.Default().
func New(store *conversation.Store, replier Replier, suggester Suggester, logger *slog.Logger, opts ...Option) (*Assistant, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if replier == nil {
		return nil, errors.New("replier is required")
	}
	if suggester == nil {
		return nil, errors.New("suggester is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assistant{
		store:     store,
		replier:   replier,
		suggester: suggester,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// OnUserMessage processes one inbound message end to end: append the user
// turn, orchestrate a reply, persist it, and produce quick replies. Turns of
// the same user never interleave.
func (a *Assistant) OnUserMessage(ctx context.Context, userID int64, text string) (Response, error) {
	conv, release := a.store.Begin(strconv.FormatInt(userID, 10))
	defer release()

	conv.AppendUser(text)
	ctx = tools.WithUserID(ctx, userID)

	var (
		reply   orchestrator.Reply
		quick   []string
		respErr error
	)
	a.withTyping(ctx, userID, func(ctx context.Context) {
		reply, respErr = a.replier.Respond(ctx, conv)
		if respErr != nil {
			return
		}
		conv.AppendAssistant(reply.Text)
		quick = a.suggester.Generate(ctx, conv.Recent(suggestionWindow))
	})
	if respErr != nil {
		return Response{}, fmt.Errorf("orchestrating reply for user %d: %w", userID, respErr)
	}

	a.logger.Debug("turn completed",
		"user_id", userID,
		"history_len", conv.Len(),
		"quick_replies", len(quick),
		"media", len(reply.Media))

	return Response{Text: reply.Text, Media: reply.Media, QuickReplies: quick}, nil
}

// OnSessionStart runs the fixed session opener through the normal message
// path, exactly as a typed message would be.
func (a *Assistant) OnSessionStart(ctx context.Context, userID int64) (Response, error) {
	return a.OnUserMessage(ctx, userID, SessionOpener)
}
