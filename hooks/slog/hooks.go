// Package sloghooks logs kvcache events with log/slog.
//
// Store keys are redacted (SHA-256 prefix by default) because string keys are
// used verbatim and may carry user data.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ kvcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(storeKey string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("kvcache.hit", "key", h.redact(storeKey))
}

func (h *Hooks) Miss(storeKey string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("kvcache.miss", "key", h.redact(storeKey))
}

func (h *Hooks) SetRejected(storeKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("kvcache.set_rejected", "key", h.redact(storeKey))
}

func (h *Hooks) SelfHeal(storeKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("kvcache.self_heal",
		"key", h.redact(storeKey),
		"reason", reason)
}
