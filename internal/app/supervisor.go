// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package app

import (
	"context"
	"log/slog"

	"github.com/sethvargo/go-retry"

	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/internal/bus"
	"github.com/marionette-rig/marionette/internal/character"
	"github.com/marionette-rig/marionette/internal/scene"
	"github.com/marionette-rig/marionette/pkg/errutil"
)

// Pipeline stages used as metric and log labels.
const (
	StageLoad        = "load"
	StageSelect      = "select"
	StageOrchestrate = "orchestrate"
	StageActivate    = "activate"
	StageUnknown     = "unknown"
)

// keyed messages carry an identity stable across re-deliveries.
type keyed interface {
	Key() string
}

// repoll tracks the retry budget of one message key.
type repoll struct {
	backoff  retry.Backoff
	attempts int
}

func messageKey(msg bus.Message) string {
	if k, ok := msg.(keyed); ok {
		return k.Key()
	}
	return string(msg.Kind())
}

func stageOf(kind bus.Kind) string {
	switch kind {
	case KindSelect:
		return StageSelect
	case asset.LoadCompleteKind(character.KindDefinition):
		return StageOrchestrate
	case scene.KindInstanceReady:
		return StageActivate
	default:
		return StageUnknown
	}
}

// supervised wraps h so that a success clears any retry budget held for the
// message.
func (a *App) supervised(h bus.Handler) bus.Handler {
	return func(ctx context.Context, msg bus.Message) error {
		err := h(ctx, msg)
		if err == nil {
			delete(a.repolls, messageKey(msg))
		}
		return err
	}
}

// onError classifies handler failures. Not-ready failures are re-queued for
// the next tick until the key's budget runs out; everything else is logged
// and counted once.
func (a *App) onError(ctx context.Context, msg bus.Message, err error) {
	stage := stageOf(msg.Kind())
	code := errutil.Code(err)
	key := messageKey(msg)

	if character.IsNotReady(err) {
		rp, ok := a.repolls[key]
		if !ok {
			rp = &repoll{backoff: retry.WithMaxRetries(uint64(a.cfg.MaxRepolls), retry.NewConstant(a.cfg.Tick))}
			a.repolls[key] = rp
		}
		if _, stop := rp.backoff.Next(); !stop {
			rp.attempts++
			a.queue.Defer(msg)
			a.metrics.RepollsTotal.WithLabelValues(stage).Inc()
			slog.DebugContext(ctx, "dependency not ready, re-polling",
				"stage", stage, "key", key, "code", code, "attempt", rp.attempts)
			return
		}
		delete(a.repolls, key)
		a.metrics.FailuresTotal.WithLabelValues(stage, code).Inc()
		errutil.LogError(slog.Default(), "re-poll budget exhausted", err)
		return
	}

	delete(a.repolls, key)
	a.metrics.FailuresTotal.WithLabelValues(stage, code).Inc()
	if errutil.HasCode(err, character.CodeNoPlaybackNode) {
		errutil.LogWarn(slog.Default(), "character has no animation player", err)
		return
	}
	errutil.LogError(slog.Default(), "pipeline stage failed", err)
}
