package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quizdrop/quizdrop/common"
	"github.com/quizdrop/quizdrop/db/model"
	"github.com/quizdrop/quizdrop/logging"
	"github.com/quizdrop/quizdrop/metrics"
	"github.com/quizdrop/quizdrop/util"
)

// ErrRateLimited marks a send dropped by the limiter. Callers treat it as a
// soft outcome, never as a failure of the operation that triggered the send.
var ErrRateLimited = errors.New("recipient is rate limited")

type Notification struct {
	Title     string
	Body      string
	TargetURL string
}

type relayPayload struct {
	NotificationId string   `json:"notificationId"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	TargetURL      string   `json:"targetUrl"`
	Tokens         []string `json:"tokens"`
}

// Dispatcher fans notifications out to opted-in recipients through their push
// relay. Every send consults the limiter first; a non-2xx relay response is a
// delivery failure with no automatic retry.
type Dispatcher struct {
	dataProvider  DataProvider
	limiter       *Limiter
	metricService *metrics.MetricService
	client        *http.Client
	appTargetURL  string
}

func NewDispatcher(dataProvider DataProvider, limiter *Limiter, metricService *metrics.MetricService, appTargetURL string) *Dispatcher {
	return &Dispatcher{
		dataProvider:  dataProvider,
		limiter:       limiter,
		metricService: metricService,
		client:        &http.Client{Timeout: RelayTimeout},
		appTargetURL:  appTargetURL,
	}
}

// OptIn stores (or re-enables) a recipient's push token.
func (d *Dispatcher) OptIn(recipientKey, token, relayURL string) error {
	if token == "" || relayURL == "" {
		return common.NewValidationError(common.CodeInvalidOption, "token and relay url are required")
	}
	err := d.dataProvider.SaveToken(&model.NotificationToken{
		RecipientKey: recipientKey,
		Token:        token,
		RelayURL:     relayURL,
		Enabled:      true,
		UpdatedTime:  util.NowMs(),
	})
	if err != nil {
		return common.NewStoreError(err, "save token for %s", recipientKey)
	}
	return nil
}

// OptOut disables the token but keeps the row, matching the opt-out event
// semantics: the recipient may opt back in with the same token.
func (d *Dispatcher) OptOut(recipientKey, token string) error {
	if err := d.dataProvider.DisableToken(recipientKey, token, util.NowMs()); err != nil {
		return common.NewStoreError(err, "disable token for %s", recipientKey)
	}
	return nil
}

// RemoveRecipient deletes all tokens, used on app-removal events.
func (d *Dispatcher) RemoveRecipient(recipientKey string) error {
	if err := d.dataProvider.DeleteTokensByRecipient(recipientKey); err != nil {
		return common.NewStoreError(err, "delete tokens of %s", recipientKey)
	}
	return nil
}

// Send delivers one notification to every enabled token of the recipient,
// grouped per relay. The limiter is consulted once per recipient and its lock
// is released before any HTTP call.
func (d *Dispatcher) Send(ctx context.Context, recipientKey string, n Notification) error {
	tokens, err := d.dataProvider.GetEnabledTokensByRecipient(recipientKey)
	if err != nil {
		return common.NewStoreError(err, "load tokens of %s", recipientKey)
	}
	if len(tokens) == 0 {
		return nil
	}

	now := time.Now()
	if !d.limiter.Allow(recipientKey, now) {
		d.metricService.IncNotificationsLimited()
		return ErrRateLimited
	}

	byRelay := make(map[string][]string)
	for _, t := range tokens {
		byRelay[t.RelayURL] = append(byRelay[t.RelayURL], t.Token)
	}

	delivered := false
	for relayURL, relayTokens := range byRelay {
		start := time.Now()
		err := d.post(ctx, relayURL, relayTokens, n)
		d.metricService.ObserveDispatchDuration(time.Since(start))
		if err != nil {
			d.metricService.IncNotificationsFailed()
			logging.Logger.Errorf("relay delivery failed, recipient=%s relay=%s err=%s", recipientKey, relayURL, err.Error())
			continue
		}
		delivered = true
		d.metricService.IncNotificationsSent()
	}

	if !delivered {
		return fmt.Errorf("no relay accepted the notification for %s", recipientKey)
	}
	d.limiter.Record(recipientKey, now)
	return nil
}

// Broadcast fans one notification out to every opted-in recipient. Rate
// limited or failed recipients are skipped, not retried.
func (d *Dispatcher) Broadcast(ctx context.Context, n Notification) error {
	tokens, err := d.dataProvider.GetEnabledTokens()
	if err != nil {
		return common.NewStoreError(err, "load enabled tokens")
	}

	recipients := make(map[string]bool)
	for _, t := range tokens {
		recipients[t.RecipientKey] = true
	}
	for recipientKey := range recipients {
		if err := d.Send(ctx, recipientKey, n); err != nil && !errors.Is(err, ErrRateLimited) {
			logging.Logger.Errorf("broadcast delivery failed, recipient=%s err=%s", recipientKey, err.Error())
		}
	}
	return nil
}

// NotifyWinner implements the winner registry's notifier hook.
func (d *Dispatcher) NotifyWinner(recipientKey, quizTitle, rewardWei string) {
	n := Notification{
		Title:     "You won!",
		Body:      fmt.Sprintf("You claimed a winner slot on %q", quizTitle),
		TargetURL: d.appTargetURL,
	}
	if rewardWei != "" && rewardWei != "0" {
		n.Body = fmt.Sprintf("You claimed a winner slot on %q, reward %s wei", quizTitle, rewardWei)
	}
	err := d.Send(context.Background(), recipientKey, n)
	if err != nil && !errors.Is(err, ErrRateLimited) {
		logging.Logger.Errorf("winner notification failed, recipient=%s err=%s", recipientKey, err.Error())
	}
}

func (d *Dispatcher) post(ctx context.Context, relayURL string, tokens []string, n Notification) error {
	payload := relayPayload{
		NotificationId: uuid.NewString(),
		Title:          n.Title,
		Body:           n.Body,
		TargetURL:      n.TargetURL,
		Tokens:         tokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, relayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return nil
}
