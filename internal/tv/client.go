// Package tv talks to a Samsung Smart TV over its local REST API and the
// remote-control websocket channel.
package tv

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// YouTubeAppID is the application ID of the YouTube app on Tizen TVs.
const YouTubeAppID = "111299001912"

// Config holds TV connection settings.
type Config struct {
	Host      string
	RestPort  int
	WSPort    int
	Name      string
	TokenFile string
	Timeout   time.Duration
}

// DeviceInfo is the TV's self-description from the REST API.
type DeviceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Device  struct {
		Type       string `json:"type"`
		ModelName  string `json:"modelName"`
		WifiMac    string `json:"wifiMac"`
		PowerState string `json:"PowerState"`
	} `json:"device"`
}

// AppStatus reports whether an installed app is running and in the
// foreground.
type AppStatus struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Visible bool   `json:"visible"`
	Version string `json:"version"`
}

// Client is a Samsung TV client. REST calls need no pairing; the websocket
// remote channel pairs on first connect and persists the token for reuse.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger zerolog.Logger
}

// NewClient creates a TV client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("TV host is required")
	}
	if cfg.RestPort == 0 {
		cfg.RestPort = 8001
	}
	if cfg.WSPort == 0 {
		cfg.WSPort = 8002
	}
	if cfg.Name == "" {
		cfg.Name = "tvmon"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "tv").Str("host", cfg.Host).Logger(),
	}, nil
}

// DeviceInfo fetches the TV's device description. Useful as a reachability
// probe: the endpoint answers whenever the TV is on the network.
func (c *Client) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := c.getJSON(ctx, "/api/v2/", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// AppStatus fetches the running/visible state of an installed app.
func (c *Client) AppStatus(ctx context.Context, appID string) (*AppStatus, error) {
	var status AppStatus
	if err := c.getJSON(ctx, "/api/v2/applications/"+appID, &status); err != nil {
		return nil, err
	}
	if status.ID == "" {
		status.ID = appID
	}
	return &status, nil
}

// RunningApp is the foreground app as reported by the TV's app-status
// endpoint. URL is only populated for web-backed apps such as YouTube.
type RunningApp struct {
	AppID   string `json:"appId"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Visible bool   `json:"visible"`
}

type appStatusResponse struct {
	App RunningApp `json:"app"`
}

// RunningApp fetches the app currently in the foreground.
func (c *Client) RunningApp(ctx context.Context) (*RunningApp, error) {
	var resp appStatusResponse
	if err := c.getJSON(ctx, "/api/v2/applications/", &resp); err != nil {
		return nil, err
	}
	return &resp.App, nil
}

// CurrentVideoID returns the YouTube video ID playing on the TV, or "" when
// the foreground app is not YouTube or no video URL is exposed.
func (c *Client) CurrentVideoID(ctx context.Context) (string, error) {
	app, err := c.RunningApp(ctx)
	if err != nil {
		return "", err
	}
	if !strings.Contains(app.Title, "YouTube") {
		return "", nil
	}
	return ExtractVideoID(app.URL), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	endpoint := fmt.Sprintf("http://%s:%d%s", c.cfg.Host, c.cfg.RestPort, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("call TV: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TV returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode TV response: %w", err)
	}
	return nil
}

// channelEvent is the envelope the remote channel sends on connect.
type channelEvent struct {
	Event string `json:"event"`
	Data  struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Remote is an open remote-control websocket channel.
type Remote struct {
	conn   *websocket.Conn
	logger zerolog.Logger
}

// OpenRemote connects to the remote-control channel. The first connection
// triggers an on-screen pairing prompt; the token the TV hands back is
// persisted so later connections skip the prompt.
func (c *Client) OpenRemote(ctx context.Context) (*Remote, error) {
	token := c.loadToken()

	query := url.Values{}
	query.Set("name", base64.StdEncoding.EncodeToString([]byte(c.cfg.Name)))
	if token != "" {
		query.Set("token", token)
	}
	endpoint := fmt.Sprintf("wss://%s:%d/api/v2/channels/samsung.remote.control?%s",
		c.cfg.Host, c.cfg.WSPort, query.Encode())

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.Timeout,
		// The TV serves a self-signed certificate on the secure channel.
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial remote channel: %w", err)
	}

	// Pairing may keep the prompt on screen for a while.
	deadline := time.Now().Add(30 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	var event channelEvent
	if err := conn.ReadJSON(&event); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read channel handshake: %w", err)
	}
	if event.Event != "ms.channel.connect" {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected channel event %q", event.Event)
	}
	_ = conn.SetReadDeadline(time.Time{})

	if event.Data.Token != "" && event.Data.Token != token {
		if err := c.saveToken(event.Data.Token); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to persist pairing token")
		} else {
			c.logger.Info().Msg("Stored new pairing token")
		}
	}

	c.logger.Info().Msg("Remote channel connected")
	return &Remote{conn: conn, logger: c.logger}, nil
}

func (c *Client) loadToken() string {
	if c.cfg.TokenFile == "" {
		return ""
	}
	data, err := os.ReadFile(c.cfg.TokenFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *Client) saveToken(token string) error {
	if c.cfg.TokenFile == "" {
		return nil
	}
	if dir := filepath.Dir(c.cfg.TokenFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(c.cfg.TokenFile, []byte(token), 0600)
}

// keyPayload is the remote-control click message.
type keyPayload struct {
	Method string `json:"method"`
	Params struct {
		Cmd          string `json:"Cmd"`
		DataOfCmd    string `json:"DataOfCmd"`
		Option       string `json:"Option"`
		TypeOfRemote string `json:"TypeOfRemote"`
	} `json:"params"`
}

// SendKey sends a remote-control key press, e.g. "KEY_PAUSE".
func (r *Remote) SendKey(key string) error {
	payload := keyPayload{Method: "ms.remote.control"}
	payload.Params.Cmd = "Click"
	payload.Params.DataOfCmd = key
	payload.Params.Option = "false"
	payload.Params.TypeOfRemote = "SendRemoteKey"

	if err := r.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("send key %s: %w", key, err)
	}
	r.logger.Debug().Str("key", key).Msg("Sent remote key")
	return nil
}

// Close closes the remote channel.
func (r *Remote) Close() error {
	return r.conn.Close()
}

// ExtractVideoID pulls the video ID out of a YouTube URL. Watch URLs,
// youtu.be short links, shorts and embed paths are recognized; a bare
// 11-character ID passes through unchanged. Returns "" when no ID is found.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "/") && !strings.Contains(raw, "?") && len(raw) == 11 {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				rest := strings.TrimPrefix(u.Path, prefix)
				if i := strings.IndexByte(rest, '/'); i >= 0 {
					rest = rest[:i]
				}
				return rest
			}
		}
	}
	return ""
}
