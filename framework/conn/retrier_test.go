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
	"testing"
	"time"

	"github.com/halcyon-social/halcyon/framework/config"
	"github.com/stretchr/testify/assert"
)

func TestReattemptBackoff(t *testing.T) {
	c := config.Defaults()
	c.ActivityPubConfig.RetrySleepPeriodSeconds = 30
	r := NewRetrier(nil, nil, nil, c)

	assert.Equal(t, 30*time.Second, r.reattemptBackoff(0))
	assert.Equal(t, 60*time.Second, r.reattemptBackoff(1))
	assert.Equal(t, 2*time.Minute, r.reattemptBackoff(2))
	assert.Equal(t, 16*time.Minute, r.reattemptBackoff(5))
	// Capped at one hour.
	assert.Equal(t, time.Hour, r.reattemptBackoff(8))
	assert.Equal(t, time.Hour, r.reattemptBackoff(30))
}

func TestHostLimiterPrune(t *testing.T) {
	c := config.Defaults()
	h := newHostLimiter(c)
	l1 := h.Get("chatty.example")
	l2 := h.Get("chatty.example")
	assert.Same(t, l1, l2)

	h.mu.Lock()
	h.entries["chatty.example"].lastUsed = time.Now().Add(-time.Hour)
	h.mu.Unlock()
	h.prune()

	h.mu.Lock()
	_, ok := h.entries["chatty.example"]
	h.mu.Unlock()
	assert.False(t, ok)
}
