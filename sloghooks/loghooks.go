// Package sloghooks adapts coldcache.Hooks onto log/slog, with sampling for
// events that may repeat (prediction churn) and key redaction for logs that
// leave the machine.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/coldcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	PredictionEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	predCtr atomic.Uint64
}

var _ coldcache.Hooks = (*Hooks)(nil)

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

func (h *Hooks) SnapshotDiscarded(err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("coldcache.snapshot_discarded", "err", err)
}

func (h *Hooks) PersistFailed(err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("coldcache.persist_failed",
		"err", err,
		"msg", "cache is memory-only for this session")
}

func (h *Hooks) EmptyPageSuppressed(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("coldcache.empty_page_suppressed",
		"key", h.redact(key))
}

func (h *Hooks) PredictionPushed(id string, pending int) {
	if h.l == nil || !sample(h.opts.PredictionEvery, &h.predCtr) {
		return
	}
	h.l.Debug("coldcache.prediction_pushed",
		"id", id,
		"pending", pending)
}

func (h *Hooks) PredictionRetired(id string, pending int) {
	if h.l == nil || !sample(h.opts.PredictionEvery, &h.predCtr) {
		return
	}
	h.l.Debug("coldcache.prediction_retired",
		"id", id,
		"pending", pending)
}
