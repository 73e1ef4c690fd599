/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package errortracker

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mattmezza/monlight/internal/logging"
)

const postmarkEndpoint = "https://api.postmarkapp.com/email"

// PostmarkNotifier sends alert emails through Postmark's transactional
// email API (spec.md §6: POSTMARK_API_TOKEN, POSTMARK_FROM_EMAIL). There is
// no Postmark client anywhere in the retrieval pack, so this is a thin
// stdlib net/http client — the concern (a single outbound POST with a
// bearer-ish header and a JSON body) doesn't warrant a third-party SDK.
type PostmarkNotifier struct {
	Token string
	From  string
	lg    *logging.Logger
	hc    *http.Client
}

func NewPostmarkNotifier(token, from string, lg *logging.Logger) *PostmarkNotifier {
	return &PostmarkNotifier{Token: token, From: from, lg: lg, hc: &http.Client{Timeout: 10 * time.Second}}
}

type postmarkRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
}

// Notify is fire-and-forget per spec.md §7 kind 5: failures are logged and
// swallowed, never surfaced to the caller whose request triggered it.
func (p *PostmarkNotifier) Notify(subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	to := recipients[0]
	for _, r := range recipients[1:] {
		to += "," + r
	}
	payload, err := json.Marshal(postmarkRequest{From: p.From, To: to, Subject: subject, TextBody: body})
	if err != nil {
		p.lg.Error("failed to encode postmark payload", logging.SD("error", err.Error()))
		return err
	}
	req, err := http.NewRequest(http.MethodPost, postmarkEndpoint, bytes.NewReader(payload))
	if err != nil {
		p.lg.Error("failed to build postmark request", logging.SD("error", err.Error()))
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.Token)

	resp, err := p.hc.Do(req)
	if err != nil {
		p.lg.Error("postmark delivery failed", logging.SD("error", err.Error()))
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		err := fmt.Errorf("postmark returned status %d", resp.StatusCode)
		p.lg.Error("postmark delivery rejected", logging.SD("error", err.Error()))
		return err
	}
	return nil
}
