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

// Package conn provides the outbound federation plumbing: the signed HTTP
// transport, per-host rate limiting, and the delivery retrier.
package conn

import (
	"bytes"
	"context"
	"crypto"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-fed/httpsig"
	"github.com/halcyon-social/halcyon/framework/config"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/services"
	"github.com/halcyon-social/halcyon/util"
)

const (
	activityStreamsContentType = "application/ld+json; profile=\"https://www.w3.org/ns/activitystreams\""
	acceptHeaderValue          = "application/activity+json, application/ld+json; profile=\"https://www.w3.org/ns/activitystreams\""
)

// Controller builds signed transports and applies shared outbound policy.
type Controller struct {
	clock       pub.Clock
	client      *http.Client
	userAgent   string
	algs        []httpsig.Algorithm
	digestAlg   httpsig.DigestAlgorithm
	getHeaders  []string
	postHeaders []string
	hl          *hostLimiter
	da          *services.DeliveryAttempts
}

// NewController validates the signature configuration and builds the
// controller.
func NewController(
	c *config.Config,
	clock pub.Clock,
	client *http.Client,
	userAgent string,
	da *services.DeliveryAttempts) (*Controller, error) {
	hsc := c.ActivityPubConfig.HttpSignaturesConfig
	if !httpsig.IsSupportedDigestAlgorithm(hsc.DigestAlgorithm) {
		return nil, fmt.Errorf("unsupported digest algorithm: %s", hsc.DigestAlgorithm)
	}
	algos := make([]httpsig.Algorithm, len(hsc.Algorithms))
	for i, algo := range hsc.Algorithms {
		if !httpsig.IsSupportedHttpSigAlgorithm(algo) {
			return nil, fmt.Errorf("unsupported httpsig algorithm: %s", algo)
		}
		algos[i] = httpsig.Algorithm(algo)
	}
	return &Controller{
		clock:       clock,
		client:      client,
		userAgent:   userAgent,
		algs:        algos,
		digestAlg:   httpsig.DigestAlgorithm(hsc.DigestAlgorithm),
		getHeaders:  hsc.GetHeaders,
		postHeaders: hsc.PostHeaders,
		hl:          newHostLimiter(c),
		da:          da,
	}, nil
}

// Get builds a transport signing with the given private key.
func (tc *Controller) Get(privKey crypto.PrivateKey, pubKeyID string) (pub.Transport, error) {
	getSigner, _, err := httpsig.NewSigner(tc.algs, tc.digestAlg, tc.getHeaders, httpsig.Signature, 0)
	if err != nil {
		return nil, err
	}
	postSigner, _, err := httpsig.NewSigner(tc.algs, tc.digestAlg, tc.postHeaders, httpsig.Signature, 0)
	if err != nil {
		return nil, err
	}
	return &transport{
		clock:      tc.clock,
		client:     tc.client,
		userAgent:  tc.userAgent,
		getSigner:  getSigner,
		postSigner: postSigner,
		privKey:    privKey,
		pubKeyID:   pubKeyID,
		tc:         tc,
	}, nil
}

// GetFirstAlgorithm is the algorithm used to verify peers' signatures.
func (tc *Controller) GetFirstAlgorithm() httpsig.Algorithm {
	return tc.algs[0]
}

// Start launches the background pruning of idle per-host limiters.
func (tc *Controller) Start() {
	tc.hl.Start()
}

// Stop halts background work.
func (tc *Controller) Stop() {
	tc.hl.Stop()
}

func (tc *Controller) wait(c context.Context, host string) {
	tc.hl.Get(host).Wait(c)
}

var _ pub.Transport = &transport{}

// transport is the signed HTTP client for one local actor key.
type transport struct {
	clock                     pub.Clock
	client                    *http.Client
	userAgent                 string
	getSigner, postSigner     httpsig.Signer
	getSignerMu, postSignerMu sync.Mutex
	privKey                   crypto.PrivateKey
	pubKeyID                  string
	tc                        *Controller
}

// Dereference fetches an IRI with ActivityStreams content negotiation.
func (t *transport) Dereference(c context.Context, iri *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(c, http.MethodGet, iri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", acceptHeaderValue)
	req.Header.Add("Accept-Charset", "utf-8")
	req.Header.Add("Date", t.date())
	req.Header.Add("User-Agent", t.userAgent)
	t.getSignerMu.Lock()
	err = t.getSigner.SignRequest(t.privKey, t.pubKeyID, req, nil)
	t.getSignerMu.Unlock()
	if err != nil {
		return nil, err
	}
	t.tc.wait(c, iri.Host)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dereference of %s failed with status (%d): %s", iri, resp.StatusCode, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Deliver POSTs the payload to a federated inbox, recording the attempt so
// 5xx responses are retried later.
func (t *transport) Deliver(c context.Context, b []byte, to *url.URL) error {
	uc := util.Context{Context: c}
	from, err := uc.ActorIRI()
	if err != nil {
		return fmt.Errorf("failed to determine the actor to deliver on behalf of: %w", err)
	}
	attemptID, err := t.tc.da.InsertAttempt(uc, from, to, b)
	if err != nil {
		return fmt.Errorf("failed to create delivery attempt: %w", err)
	}
	err = t.deliverOnce(c, b, to)
	if err == nil {
		return t.tc.da.MarkSuccess(uc, attemptID)
	}
	var fatal *fatalDeliveryError
	if isFatal(err, &fatal) {
		// 4xx responses will never succeed on retry.
		util.ErrorLogger.Errorf("fatal delivery to %s: %s", to, err)
		if err2 := t.tc.da.MarkAbandoned(uc, attemptID); err2 != nil {
			return fmt.Errorf("failed delivery and failed to mark abandoned: [%w, %v]", err, err2)
		}
		return err
	}
	if err2 := t.tc.da.MarkFailure(uc, attemptID); err2 != nil {
		return fmt.Errorf("failed delivery and failed to mark as failure: [%w, %v]", err, err2)
	}
	return err
}

// deliverOnce POSTs without touching attempt bookkeeping; the retrier uses
// it directly.
func (t *transport) deliverOnce(c context.Context, b []byte, to *url.URL) error {
	byteCopy := make([]byte, len(b))
	copy(byteCopy, b)
	req, err := http.NewRequestWithContext(c, http.MethodPost, to.String(), bytes.NewBuffer(byteCopy))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", activityStreamsContentType)
	req.Header.Add("Accept-Charset", "utf-8")
	req.Header.Add("Date", t.date())
	req.Header.Add("User-Agent", t.userAgent)
	t.postSignerMu.Lock()
	err = t.postSigner.SignRequest(t.privKey, t.pubKeyID, req, b)
	t.postSignerMu.Unlock()
	if err != nil {
		return err
	}
	t.tc.wait(c, to.Host)
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &fatalDeliveryError{status: resp.StatusCode, to: to.String()}
	default:
		return fmt.Errorf("delivery to %s failed with status (%d): %s", to, resp.StatusCode, resp.Status)
	}
}

// BatchDeliver delivers to each inbox; failures are aggregated into the log,
// never aborting the remaining recipients.
func (t *transport) BatchDeliver(c context.Context, b []byte, recipients []*url.URL) error {
	var wg sync.WaitGroup
	for i, r := range recipients {
		wg.Add(1)
		go func(i int, r *url.URL) {
			defer wg.Done()
			if err := t.Deliver(c, b, r); err != nil {
				util.ErrorLogger.Errorf("BatchDeliver (%d of %d): %s", i+1, len(recipients), err)
			}
		}(i, r)
	}
	wg.Wait()
	return nil
}

func (t *transport) date() string {
	return fmt.Sprintf("%s GMT", t.clock.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05"))
}

// fatalDeliveryError marks a 4xx delivery response: logged, never retried.
type fatalDeliveryError struct {
	status int
	to     string
}

func (e *fatalDeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s fatally failed with status %d", e.to, e.status)
}

func isFatal(err error, target **fatalDeliveryError) bool {
	for err != nil {
		if f, ok := err.(*fatalDeliveryError); ok {
			*target = f
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
