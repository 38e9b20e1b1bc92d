package tv

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch URL with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ"},
		{"shorts path", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed path", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"live path", "https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"bare ID", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"empty", "", ""},
		{"non-YouTube URL", "https://example.com/watch?v=dQw4w9WgXcQ", ""},
		{"home page", "https://www.youtube.com/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVideoID(tt.url); got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// newTestClient points a Client at a test server standing in for the TV's
// REST API.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	client, err := NewClient(Config{Host: u.Hostname(), RestPort: port}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return client
}

func TestDeviceInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name": "[TV] Living Room",
			"device": map[string]any{
				"type":      "Samsung SmartTV",
				"modelName": "UN55TU8000",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	info, err := client.DeviceInfo(context.Background())
	if err != nil {
		t.Fatalf("DeviceInfo() error: %v", err)
	}
	if info.Name != "[TV] Living Room" || info.Device.ModelName != "UN55TU8000" {
		t.Errorf("info = %+v", info)
	}
}

func TestCurrentVideoID(t *testing.T) {
	tests := []struct {
		name string
		app  map[string]any
		want string
	}{
		{
			"YouTube playing a video",
			map[string]any{"appId": "111299001912", "title": "YouTube", "url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "visible": true},
			"dQw4w9WgXcQ",
		},
		{
			"YouTube on the home screen",
			map[string]any{"appId": "111299001912", "title": "YouTube", "url": "https://www.youtube.com/", "visible": true},
			"",
		},
		{
			"different app in foreground",
			map[string]any{"appId": "11101200001", "title": "Netflix", "url": "", "visible": true},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v2/applications/" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_ = json.NewEncoder(w).Encode(map[string]any{"app": tt.app})
			}))
			defer server.Close()

			client := newTestClient(t, server)
			got, err := client.CurrentVideoID(context.Background())
			if err != nil {
				t.Fatalf("CurrentVideoID() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CurrentVideoID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenRemotePersistsToken(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotKey := make(chan string, 1)

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/channels/samsung.remote.control" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		name, err := base64.StdEncoding.DecodeString(r.URL.Query().Get("name"))
		if err != nil || string(name) != "tvmon-test" {
			t.Errorf("name param = %q (err %v)", name, err)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Handshake event carrying the pairing token.
		_ = conn.WriteJSON(map[string]any{
			"event": "ms.channel.connect",
			"data":  map[string]string{"token": "12345678"},
		})

		var payload struct {
			Method string `json:"method"`
			Params struct {
				DataOfCmd string `json:"DataOfCmd"`
			} `json:"params"`
		}
		if err := conn.ReadJSON(&payload); err == nil && payload.Method == "ms.remote.control" {
			gotKey <- payload.Params.DataOfCmd
		}
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}

	tokenFile := filepath.Join(t.TempDir(), "tv_token.txt")
	client, err := NewClient(Config{
		Host:      u.Hostname(),
		WSPort:    port,
		Name:      "tvmon-test",
		TokenFile: tokenFile,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	remote, err := client.OpenRemote(context.Background())
	if err != nil {
		t.Fatalf("OpenRemote() error: %v", err)
	}
	defer remote.Close()

	if err := remote.SendKey("KEY_INFO"); err != nil {
		t.Fatalf("SendKey() error: %v", err)
	}

	select {
	case key := <-gotKey:
		if key != "KEY_INFO" {
			t.Errorf("TV received key %q, want KEY_INFO", key)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("TV never received the key press")
	}

	data, err := os.ReadFile(tokenFile)
	if err != nil {
		t.Fatalf("token file not written: %v", err)
	}
	if string(data) != "12345678" {
		t.Errorf("stored token = %q, want 12345678", data)
	}
}

func TestCurrentVideoIDPropagatesTVErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.CurrentVideoID(context.Background()); err == nil {
		t.Error("CurrentVideoID() against failing TV did not error")
	}
}
