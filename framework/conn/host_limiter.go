// halcyon is a server framework for implementing an ActivityPub application.
// Copyright (C) 2026 The Halcyon Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package conn

import (
	"context"
	"sync"
	"time"

	"github.com/halcyon-social/halcyon/framework/config"
	"golang.org/x/time/rate"
)

// hostLimiter hands out one rate limiter per federated peer host, pruning
// limiters that have sat unused.
type hostLimiter struct {
	qps         rate.Limit
	burst       int
	prunePeriod time.Duration
	pruneAge    time.Duration

	mu      sync.Mutex
	entries map[string]*limiterEntry

	stopCtx    context.Context
	stopCancel context.CancelFunc
	wg         sync.WaitGroup
}

type limiterEntry struct {
	l        *rate.Limiter
	lastUsed time.Time
}

func newHostLimiter(c *config.Config) *hostLimiter {
	return &hostLimiter{
		qps:         rate.Limit(c.ActivityPubConfig.OutboundRateLimitQPS),
		burst:       c.ActivityPubConfig.OutboundRateLimitBurst,
		prunePeriod: time.Duration(c.ActivityPubConfig.OutboundRateLimitPrunePeriodSeconds) * time.Second,
		pruneAge:    time.Duration(c.ActivityPubConfig.OutboundRateLimitPruneAgeSeconds) * time.Second,
		entries:     make(map[string]*limiterEntry),
	}
}

// Get returns the limiter for the host, creating one as needed.
func (h *hostLimiter) Get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[host]
	if !ok {
		e = &limiterEntry{l: rate.NewLimiter(h.qps, h.burst)}
		h.entries[host] = e
	}
	e.lastUsed = time.Now()
	return e.l
}

func (h *hostLimiter) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopCtx != nil {
		return
	}
	h.stopCtx, h.stopCancel = context.WithCancel(context.Background())
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		t := time.NewTicker(h.prunePeriod)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				h.prune()
			case <-h.stopCtx.Done():
				return
			}
		}
	}()
}

func (h *hostLimiter) Stop() {
	h.mu.Lock()
	cancel := h.stopCancel
	h.stopCtx = nil
	h.stopCancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
		h.wg.Wait()
	}
}

func (h *hostLimiter) prune() {
	cutoff := time.Now().Add(-h.pruneAge)
	h.mu.Lock()
	defer h.mu.Unlock()
	for host, e := range h.entries {
		if e.lastUsed.Before(cutoff) {
			delete(h.entries, host)
		}
	}
}
