package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/model"
)

// Header names for the anonymous signed identity.
const (
	HeaderAuthUID = "X-Auth-Uid"
	HeaderAuthSig = "X-Auth-Sig"
)

// UnlinkOutcome classifies /tv/unlink responses. NotFound and Forbidden
// both mean the pairing is gone server-side and should be cleared locally.
type UnlinkOutcome string

const (
	UnlinkOK        UnlinkOutcome = "unlinked"
	UnlinkNotFound  UnlinkOutcome = "not_found"
	UnlinkForbidden UnlinkOutcome = "forbidden"
)

// SendResult is the interpreted outcome of one /tv/send attempt.
type SendResult struct {
	Outcome model.DeliveryOutcome
	// Reason carries the relay-reported status on a 202 (e.g. "offline").
	Reason string
}

// Client talks to the relay backend. Calls that hit authorized endpoints
// take the caller's credentials explicitly; the client holds no mutable
// identity state of its own.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// AnonSession requests a fresh anonymous signed identity.
func (c *Client) AnonSession(ctx context.Context) (model.AuthSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/anon", nil)
	if err != nil {
		return model.AuthSession{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.AuthSession{}, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.AuthSession{}, apperrors.Network(fmt.Errorf("auth/anon returned %d", resp.StatusCode))
	}

	var s model.AuthSession
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return model.AuthSession{}, apperrors.Network(err)
	}
	if !s.Valid() {
		return model.AuthSession{}, apperrors.Network(errors.New("auth/anon returned a partial session"))
	}
	return s, nil
}

// Search runs a lookup for the given term. The caller owns cancellation;
// an aborted context surfaces as a CANCELED error, never as a network one.
func (c *Client) Search(ctx context.Context, term string) ([]model.SearchSource, error) {
	u := fmt.Sprintf("%s/acestream?term=%s", c.baseURL, url.QueryEscape(term))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Network(fmt.Errorf("acestream lookup returned %d", resp.StatusCode))
	}

	var sources []model.SearchSource
	if err := json.NewDecoder(resp.Body).Decode(&sources); err != nil {
		return nil, classifyTransport(ctx, err)
	}
	return sources, nil
}

// Pair exchanges a 6-digit code for a device id.
func (c *Client) Pair(ctx context.Context, auth model.AuthSession, code, userID string) (string, error) {
	body := map[string]string{"pairCode": code, "userId": userID}

	resp, err := c.postJSON(ctx, "/tv/pair", auth, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload := decodeBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperrors.InvalidPairCode(payload.Detail)
	}
	if payload.DeviceID == "" {
		return "", apperrors.Network(errors.New("tv/pair succeeded without a deviceId"))
	}
	return payload.DeviceID, nil
}

// Status re-validates an existing pairing. A 403/404 means the pairing
// is revoked or unknown regardless of the response body; any other
// failure is reported as transient so the caller leaves state untouched.
func (c *Client) Status(ctx context.Context, auth model.AuthSession, deviceID string) error {
	u := fmt.Sprintf("%s/tv/status?deviceId=%s", c.baseURL, url.QueryEscape(deviceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cache-Control", "no-store")
	setAuth(req, auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(ctx, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return apperrors.PairingRevoked()
	default:
		return apperrors.Network(fmt.Errorf("tv/status returned %d", resp.StatusCode))
	}
}

// Send delivers one command envelope and interprets the relay's answer.
func (c *Client) Send(ctx context.Context, auth model.AuthSession, env model.CommandEnvelope) (SendResult, error) {
	resp, err := c.postJSON(ctx, "/tv/send", auth, env)
	if err != nil {
		return SendResult{Outcome: model.DeliveryFailed}, err
	}
	defer resp.Body.Close()

	payload := decodeBody(resp)

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return SendResult{Outcome: model.DeliveryUnauthorized}, nil
	case resp.StatusCode == http.StatusAccepted:
		return SendResult{Outcome: model.DeliveryUnreachable, Reason: payload.Status}, nil
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return SendResult{Outcome: model.DeliveryDelivered}, nil
	default:
		log.Warn().Int("status", resp.StatusCode).Str("detail", payload.Detail).Msg("tv/send failed")
		return SendResult{Outcome: model.DeliveryFailed}, nil
	}
}

// Unlink releases the pairing server-side.
func (c *Client) Unlink(ctx context.Context, auth model.AuthSession, deviceID string) (UnlinkOutcome, error) {
	body := map[string]string{"deviceId": deviceID}

	resp, err := c.postJSON(ctx, "/tv/unlink", auth, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload := decodeBody(resp)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return UnlinkOK, nil
	case resp.StatusCode == http.StatusNotFound:
		return UnlinkNotFound, nil
	case resp.StatusCode == http.StatusForbidden:
		return UnlinkForbidden, nil
	default:
		detail := payload.Detail
		if detail == "" {
			detail = fmt.Sprintf("Error %d", resp.StatusCode)
		}
		return "", apperrors.DeliveryFailed(detail)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, auth model.AuthSession, body any) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	return resp, nil
}

func setAuth(req *http.Request, auth model.AuthSession) {
	req.Header.Set(HeaderAuthUID, auth.UID)
	req.Header.Set(HeaderAuthSig, auth.Sig)
}

// responseBody is the loose shape shared by all relay JSON responses.
type responseBody struct {
	Status   string `json:"status"`
	Detail   string `json:"detail"`
	DeviceID string `json:"deviceId"`
}

// decodeBody best-effort decodes a JSON body. Status codes are trusted
// on their own; the body only enriches messages, so a non-JSON or
// malformed body yields an empty payload rather than an error.
func decodeBody(resp *http.Response) responseBody {
	var payload responseBody
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		io.Copy(io.Discard, resp.Body)
		return payload
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return responseBody{}
	}
	return payload
}

// classifyTransport separates a caller-driven abort from a genuine
// network failure. Cancellation must stay silent downstream.
func classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Wrap(apperrors.ErrCodeNetwork, "Request timed out", err)
		}
		return apperrors.Canceled().WithCause(err)
	}
	return apperrors.Network(err)
}
