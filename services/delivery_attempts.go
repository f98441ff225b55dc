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

package services

import (
	"database/sql"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/halcyon-social/halcyon/models"
	"github.com/halcyon-social/halcyon/util"
)

// DeliveryAttempts journals federated deliveries for retrying.
type DeliveryAttempts struct {
	DB               *sql.DB
	DeliveryAttempts *models.DeliveryAttempts
}

// RetryableFailure is one failed delivery eligible for a retry pass.
type RetryableFailure struct {
	ID          string
	From        *url.URL
	DeliverTo   *url.URL
	Payload     []byte
	NAttempts   int
	LastAttempt time.Time
	FetchTime   time.Time
}

// InsertAttempt journals a new delivery attempt and returns its id.
func (s *DeliveryAttempts) InsertAttempt(c util.Context, from, to *url.URL, payload []byte) (id string, err error) {
	id = uuid.New().String()
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.DeliveryAttempts.Create(c, tx, id, from.String(), to.String(), payload)
	})
	return
}

// MarkSuccess records a successful delivery.
func (s *DeliveryAttempts) MarkSuccess(c util.Context, id string) error {
	return s.mark(c, id, models.AttemptSucceeded)
}

// MarkFailure records a retryable failure.
func (s *DeliveryAttempts) MarkFailure(c util.Context, id string) error {
	return s.mark(c, id, models.AttemptFailed)
}

// MarkAbandoned records a permanent failure.
func (s *DeliveryAttempts) MarkAbandoned(c util.Context, id string) error {
	return s.mark(c, id, models.AttemptAbandoned)
}

func (s *DeliveryAttempts) mark(c util.Context, id, state string) error {
	return doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.DeliveryAttempts.Mark(c, tx, id, state)
	})
}

// FirstPageRetryableFailures returns the first page of failures to retry.
func (s *DeliveryAttempts) FirstPageRetryableFailures(c util.Context, n int) (out []RetryableFailure, err error) {
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		rows, err := s.DeliveryAttempts.FirstPageFailures(c, tx, n)
		if err != nil {
			return err
		}
		out, err = toRetryable(rows)
		return err
	})
	return
}

// NextPageRetryableFailures continues past the previous page.
func (s *DeliveryAttempts) NextPageRetryableFailures(c util.Context, afterID string, fetchTime time.Time, n int) (out []RetryableFailure, err error) {
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		rows, err := s.DeliveryAttempts.NextPageFailures(c, tx, afterID, n)
		if err != nil {
			return err
		}
		out, err = toRetryable(rows)
		return err
	})
	return
}

func toRetryable(rows []models.DeliveryAttempt) ([]RetryableFailure, error) {
	now := time.Now()
	out := make([]RetryableFailure, 0, len(rows))
	for _, r := range rows {
		from, err := url.Parse(r.FromIRI)
		if err != nil {
			continue
		}
		to, err := url.Parse(r.ToIRI)
		if err != nil {
			continue
		}
		out = append(out, RetryableFailure{
			ID:          r.ID,
			From:        from,
			DeliverTo:   to,
			Payload:     r.Payload,
			NAttempts:   r.NAttempts,
			LastAttempt: r.LastAttempt,
			FetchTime:   now,
		})
	}
	return out, nil
}
