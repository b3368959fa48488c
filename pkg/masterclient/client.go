package masterclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/cuemby/halti-agent/pkg/log"
	"github.com/cuemby/halti-agent/pkg/notify"
	"github.com/cuemby/halti-agent/pkg/types"
)

// RegisterResponse is the body of a successful registration call.
type RegisterResponse struct {
	InstanceID        string `json:"instance_id"`
	HeartbeatInterval int    `json:"heartbeat_interval"`
}

type heartbeatRequest struct {
	Containers []types.RunningContainer `json:"containers"`
}

// registerNotifyRetryMax is the retry budget for calls that are not
// cadence-sensitive: a slow register or notify round trip delays
// startup or drops one log line, neither of which the supervisor's
// heartbeat cadence depends on.
const registerNotifyRetryMax = 3

// Client is the unauthenticated, instance-agnostic half of the master
// transport: it can register, but every later call needs an
// instance_id, which Bind supplies (instance_id is injected at
// construction rather than read from an ambient global).
type Client struct {
	http           *retryablehttp.Client
	requestTimeout time.Duration
	baseURL        string
	logger         zerolog.Logger
}

// New builds a Client against baseURL. requestTimeout bounds every
// individual HTTP round trip and must be kept shorter than the
// heartbeat interval so a slow master skips a cycle instead of
// stalling the supervisor. Register and Notify retry up to
// registerNotifyRetryMax times; Bind gives Heartbeat its own
// zero-retry client, since retrying it would let one slow master
// response consume several multiples of the heartbeat interval. Every
// request carries a fresh X-Request-Id for the master's own log
// correlation.
func New(baseURL string, requestTimeout time.Duration) *Client {
	return &Client{
		http:           newRetryClient(requestTimeout, registerNotifyRetryMax),
		requestTimeout: requestTimeout,
		baseURL:        baseURL,
		logger:         log.WithComponent(log.ComponentMasterClient),
	}
}

func newRetryClient(requestTimeout time.Duration, retryMax int) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = requestTimeout
	return retryClient
}

// Register posts descriptor to /api/v1/instances/register and returns
// the assigned instance id and heartbeat cadence.
func (c *Client) Register(ctx context.Context, descriptor any) (RegisterResponse, error) {
	var resp RegisterResponse
	err := post(ctx, c.http, c.baseURL, "/api/v1/instances/register", descriptor, &resp)
	return resp, err
}

// Bind returns an Instance scoped to instanceID for the heartbeat and
// notify calls that follow registration.
func (c *Client) Bind(instanceID string) *Instance {
	return &Instance{
		client:        c,
		instanceID:    instanceID,
		heartbeatHTTP: newRetryClient(c.requestTimeout, 0),
		logger:        log.WithInstanceID(c.logger, instanceID),
	}
}

// Instance is the master transport after registration, carrying its
// instance id through every call instead of a package-level variable.
type Instance struct {
	client        *Client
	heartbeatHTTP *retryablehttp.Client
	instanceID    string
	logger        zerolog.Logger
}

// Heartbeat reports the instance's owned containers and returns the
// DesiredSnapshot the master replies with. It uses its own zero-retry
// HTTP client, never the Register/Notify client's retry budget: a
// retried heartbeat at up to requestTimeout per attempt could consume
// several multiples of the heartbeat interval, the opposite of the
// "skip a slow cycle, don't stall" guarantee the supervisor depends on.
// A transport error is returned to the caller (the supervisor), which
// logs and skips the cycle rather than treating it as fatal.
func (i *Instance) Heartbeat(ctx context.Context, containers []types.RunningContainer) (*types.DesiredSnapshot, error) {
	var snapshot types.DesiredSnapshot
	path := fmt.Sprintf("/api/v1/instances/%s/heartbeat", i.instanceID)
	if err := post(ctx, i.heartbeatHTTP, i.client.baseURL, path, heartbeatRequest{Containers: containers}, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Notify implements reconciler.Notifier. A failed notification is
// logged and swallowed: the reconciler never sees it.
func (i *Instance) Notify(ctx context.Context, event notify.EventType, meta string) {
	path := fmt.Sprintf("/api/v1/instances/%s/notify", i.instanceID)
	if err := post(ctx, i.client.http, i.client.baseURL, path, notify.New(event, meta), nil); err != nil {
		i.logger.Warn().Err(err).Str("event", string(event)).Msg("failed to deliver notification to master")
	}
}

func post(ctx context.Context, httpClient *retryablehttp.Client, baseURL, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: unexpected status %d: %s", path, resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
