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
	"github.com/halcyon-social/halcyon/services"
	"github.com/halcyon-social/halcyon/util"
)

// Retrier periodically re-attempts failed deliveries with exponential
// backoff, abandoning them past the attempt limit.
type Retrier struct {
	// Immutable
	da               *services.DeliveryAttempts
	pk               *services.PrivateKeys
	tc               *Controller
	pageSize         int
	abandonLimit     int
	retrySleepPeriod time.Duration
	wg               sync.WaitGroup
	// Mutable
	retryCtx    context.Context
	retryCancel context.CancelFunc
	rMu         sync.Mutex
}

// NewRetrier builds the retrier over the attempt log.
func NewRetrier(da *services.DeliveryAttempts, pk *services.PrivateKeys, tc *Controller, c *config.Config) *Retrier {
	return &Retrier{
		da:               da,
		pk:               pk,
		tc:               tc,
		pageSize:         c.ActivityPubConfig.RetryPageSize,
		abandonLimit:     c.ActivityPubConfig.RetryAbandonLimit,
		retrySleepPeriod: time.Duration(c.ActivityPubConfig.RetrySleepPeriodSeconds) * time.Second,
	}
}

// reattemptBackoff doubles the base sleep period per prior attempt, capped
// at one hour.
func (r *Retrier) reattemptBackoff(n int) time.Duration {
	z := r.retrySleepPeriod
	for i := 0; i < n; i++ {
		z += z
		if z > time.Hour {
			return time.Hour
		}
	}
	return z
}

func (r *Retrier) Start() {
	r.rMu.Lock()
	defer r.rMu.Unlock()
	if r.retryCtx != nil {
		return
	}
	r.retryCtx, r.retryCancel = context.WithCancel(context.Background())
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(r.retrySleepPeriod)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				r.retry()
			case <-r.retryCtx.Done():
				return
			}
		}
	}()
}

func (r *Retrier) Stop() {
	r.rMu.Lock()
	cancel := r.retryCancel
	r.retryCtx = nil
	r.retryCancel = nil
	r.rMu.Unlock()
	if cancel != nil {
		cancel()
		r.wg.Wait()
	}
}

func (r *Retrier) retry() {
	now := time.Now()
	c := util.Context{Context: context.Background()}
	failures, err := r.da.FirstPageRetryableFailures(c, r.pageSize)
	if err != nil {
		util.ErrorLogger.Errorf("retrier failed to obtain first page: %s", err)
		return
	}
	for len(failures) > 0 {
		for _, failure := range failures {
			// Skip attempts whose backoff window has not yet elapsed.
			if now.Sub(failure.LastAttempt) < r.reattemptBackoff(failure.NAttempts-1) {
				continue
			}
			if failure.NAttempts >= r.abandonLimit {
				if err := r.da.MarkAbandoned(c, failure.ID); err != nil {
					util.ErrorLogger.Errorf("retrier failed to mark attempt as abandoned: %s", err)
				}
				continue
			}
			privKey, pubKeyID, err := r.pk.GetUserHTTPSignatureKey(c, failure.From)
			if err != nil {
				util.ErrorLogger.Errorf("retrier failed to obtain the user's HTTP Signature key: %s", err)
				continue
			}
			tp, err := r.tc.Get(privKey, pubKeyID.String())
			if err != nil {
				util.ErrorLogger.Errorf("retrier failed to obtain a transport for delivery: %s", err)
				continue
			}
			t, ok := tp.(*transport)
			if !ok {
				continue
			}
			if err := t.deliverOnce(c, failure.Payload, failure.DeliverTo); err != nil {
				util.ErrorLogger.Errorf("retrier failed in an attempt to retry delivery: %s", err)
				var fatal *fatalDeliveryError
				if isFatal(err, &fatal) || failure.NAttempts+1 >= r.abandonLimit {
					if err := r.da.MarkAbandoned(c, failure.ID); err != nil {
						util.ErrorLogger.Errorf("retrier failed to mark attempt as abandoned: %s", err)
					}
				} else if err := r.da.MarkFailure(c, failure.ID); err != nil {
					util.ErrorLogger.Errorf("retrier failed to mark attempt as failed: %s", err)
				}
			} else if err := r.da.MarkSuccess(c, failure.ID); err != nil {
				util.ErrorLogger.Errorf("retrier failed to mark attempt as successful: %s", err)
			}
		}
		last := failures[len(failures)-1]
		failures, err = r.da.NextPageRetryableFailures(c, last.ID, last.FetchTime, r.pageSize)
		if err != nil {
			util.ErrorLogger.Errorf("retrier failed to obtain the next page of retryable failures: %s", err)
			return
		}
	}
}
