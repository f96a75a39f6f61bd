package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
)

// ErrUnexpectedStatus wraps non-2xx answers from the REST endpoints.
var ErrUnexpectedStatus = errors.New("unexpected status")

// WalletInfo is the subset of the node's getwalletinfo answer the app uses.
// UnlockedUntil is only present for encrypted wallets.
type WalletInfo struct {
	WalletVersion int64   `json:"walletversion"`
	Balance       float64 `json:"balance"`
	TxCount       int64   `json:"txcount"`
	UnlockedUntil *int64  `json:"unlocked_until,omitempty"`
}

// WalletAPI calls the node's wallet endpoints and the insight explorer.
type WalletAPI struct {
	log        *logging.Logger
	apiURL     string
	insightURL string
	client     *http.Client
	retries    uint64
}

func NewWalletAPI(log *logging.Logger, apiURL, insightURL string, timeout time.Duration, retries uint64) *WalletAPI {
	return &WalletAPI{
		log:        log.Named("wallet-api"),
		apiURL:     strings.TrimRight(apiURL, "/"),
		insightURL: strings.TrimRight(insightURL, "/"),
		client:     &http.Client{Timeout: timeout},
		retries:    retries,
	}
}

func (w *WalletAPI) WalletInfo(ctx context.Context) (WalletInfo, error) {
	var info WalletInfo
	if err := w.call(ctx, http.MethodPost, w.apiURL+"/get-wallet-info", nil, &info); err != nil {
		return WalletInfo{}, err
	}
	return info, nil
}

// CheckWalletEncrypted reports whether the wallet is encrypted, which the
// node signals by including unlocked_until in the wallet info.
func (w *WalletAPI) CheckWalletEncrypted(ctx context.Context) (bool, error) {
	info, err := w.WalletInfo(ctx)
	if err != nil {
		return false, err
	}
	return info.UnlockedUntil != nil, nil
}

// UnlockWallet unlocks the wallet for timeout and returns the time until
// which the node keeps it unlocked.
func (w *WalletAPI) UnlockWallet(ctx context.Context, passphrase string, timeout time.Duration) (time.Time, error) {
	body := map[string]interface{}{
		"passphrase": passphrase,
		"timeout":    int64(timeout / time.Second),
	}
	if err := w.call(ctx, http.MethodPost, w.apiURL+"/wallet-passphrase", body, nil); err != nil {
		return time.Time{}, err
	}
	info, err := w.WalletInfo(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if info.UnlockedUntil == nil {
		return time.Time{}, errors.New("wallet is not encrypted")
	}
	return time.Unix(*info.UnlockedUntil, 0).UTC(), nil
}

// InsightTotals fetches network statistics from the insight explorer.
func (w *WalletAPI) InsightTotals(ctx context.Context) (market.InsightTotals, error) {
	var res market.InsightResult
	if err := w.call(ctx, http.MethodGet, w.insightURL+"/statistics/total", nil, &res); err != nil {
		return market.InsightTotals{}, err
	}
	return market.InsightTotals{Result: res}, nil
}

func (w *WalletAPI) call(ctx context.Context, method, url string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := w.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			w.log.Debug("request failed", zap.String("url", url), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
			if resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.retries), ctx)); err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	return nil
}
