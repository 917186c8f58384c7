// Package backend talks to the remote loan decision service. The service is an
// opaque request/reply collaborator: chat turns, salary slip upload, email OTP
// and the event feed.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gratefultolord/loan_intake_bot/internal/otp"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func New(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.Named("backend"),
	}
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	var reply ChatReply
	if err := c.postJSON(ctx, "/chat", req, &reply); err != nil {
		return nil, fmt.Errorf("Client.Chat: %w", err)
	}

	return &reply, nil
}

func (c *Client) UploadSalarySlip(ctx context.Context, customerID, fileName string, data []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("Client.UploadSalarySlip: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("Client.UploadSalarySlip: %w", err)
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("Client.UploadSalarySlip: %w", err)
	}

	endpoint := c.baseURL + "/files/upload-salary-slip?customer_id=" + url.QueryEscape(customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("Client.UploadSalarySlip: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("Client.UploadSalarySlip: %w", err)
	}

	c.logger.Debug("salary slip uploaded",
		zap.String("customer_id", customerID),
		zap.String("file", fileName),
		zap.Int("bytes", len(data)))

	return nil
}

func (c *Client) Events(ctx context.Context, customerID string) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/"+url.PathEscape(customerID), nil)
	if err != nil {
		return nil, fmt.Errorf("Client.Events: %w", err)
	}

	var reply eventsReply
	if err := c.do(req, &reply); err != nil {
		return nil, fmt.Errorf("Client.Events: %w", err)
	}

	return reply.Events, nil
}

// Send implements otp.Client against the backend's email OTP endpoint.
func (c *Client) Send(ctx context.Context, email string) (otp.SendResult, error) {
	var reply sendOTPReply
	if err := c.postJSON(ctx, "/otp/send-email", sendOTPRequest{Email: email}, &reply); err != nil {
		return otp.SendResult{}, fmt.Errorf("Client.Send: %w", err)
	}

	return otp.SendResult{Accepted: true, DemoCode: reply.DemoOTP}, nil
}

func (c *Client) Verify(ctx context.Context, email, code string) (bool, error) {
	var reply verifyOTPReply
	if err := c.postJSON(ctx, "/otp/verify-email", verifyOTPRequest{Email: email, Code: code}, &reply); err != nil {
		return false, fmt.Errorf("Client.Verify: %w", err)
	}

	return reply.Verified, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s: %d", ErrStatus, req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}

	return nil
}

var _ otp.Client = (*Client)(nil)
