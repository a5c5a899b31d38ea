// Package notify is the notify(message, kind) capability the storefront core
// calls to surface transient notices. Rendering them is up to the caller.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

type Notice struct {
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
}

type Notifier interface {
	Notify(c context.Context, message string, kind Kind)
}

// Log writes notices to the context logger.
type Log struct{}

func (Log) Notify(c context.Context, message string, kind Kind) {
	zerolog.Ctx(c).Info().
		Str(log.KeyTag, "notify Log").
		Str(log.KeyNotice, message).
		Str(log.KeyNoticeKind, string(kind)).
		Msg("notice")
}

// Recorder keeps notices in memory until drained.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, message string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Message: message, Kind: kind})
}

func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	notices := r.notices
	r.notices = nil
	return notices
}

// Multi fans a notice out to every notifier.
type Multi []Notifier

func (m Multi) Notify(c context.Context, message string, kind Kind) {
	for _, n := range m {
		n.Notify(c, message, kind)
	}
}

type Func func(c context.Context, message string, kind Kind)

func (f Func) Notify(c context.Context, message string, kind Kind) {
	f(c, message, kind)
}
