// ABOUTME: Tests for the backspeak HTTP and websocket server
// ABOUTME: Exercises uploads, clip serving and full capture sessions over httptest
package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/backspeak/internal/clipstore"
	"github.com/harperreed/backspeak/internal/metrics"
	"github.com/harperreed/backspeak/internal/protocol"
	"github.com/harperreed/backspeak/pkg/audio"
	"github.com/harperreed/backspeak/pkg/audio/encode"
)

func newTestServer(t *testing.T, maxUpload int64) (*Server, *httptest.Server, *clipstore.Store) {
	t.Helper()

	store, err := clipstore.New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	s := New(Config{Name: "Test", Port: 0, MaxUploadBytes: maxUpload}, store, metrics.NewMetrics())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv, store
}

func testWAV() audio.Encoded {
	return encode.WAV(audio.Buffer{SampleRate: 8000, Channels: [][]float32{{0.25, 0.5, -0.5}}})
}

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestReverseUpload(t *testing.T) {
	_, srv, _ := newTestServer(t, 1<<20)

	resp, err := http.Post(srv.URL+"/api/reverse", "audio/wav", bytes.NewReader(testWAV().Data))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("expected audio/wav, got %s", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	if len(body) != encode.HeaderSize+6 {
		t.Fatalf("expected %d bytes, got %d", encode.HeaderSize+6, len(body))
	}
	first := int16(binary.LittleEndian.Uint16(body[encode.HeaderSize:]))
	if first != -16384 {
		t.Errorf("expected last input sample first, got %d", first)
	}
}

func TestReverseUploadSniffsUntypedBody(t *testing.T) {
	_, srv, _ := newTestServer(t, 1<<20)

	resp, err := http.Post(srv.URL+"/api/reverse", "application/octet-stream", bytes.NewReader(testWAV().Data))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReverseUploadErrors(t *testing.T) {
	_, srv, _ := newTestServer(t, 2048)

	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        int
	}{
		{"unsupported", "audio/webm;codecs=opus", []byte{0x1A, 0x45, 0xDF, 0xA3}, http.StatusUnsupportedMediaType},
		{"corrupt wav", "audio/wav", []byte("RIFF garbage that is not a wav"), http.StatusUnprocessableEntity},
		{"empty", "audio/wav", nil, http.StatusUnprocessableEntity},
		{"too large", "audio/wav", make([]byte, 4096), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/reverse", tt.contentType, bytes.NewReader(tt.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestClipEndpoints(t *testing.T) {
	_, srv, store := newTestServer(t, 1<<20)

	clip, err := store.Publish(testWAV())
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	resp, err := http.Get(srv.URL + clip.URL)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !bytes.Equal(body, testWAV().Data) {
		t.Error("served clip does not match published bytes")
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+clip.URL, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req, _ := http.NewRequest(method, srv.URL+clip.URL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s failed: %v", method, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s after release: expected 404, got %d", method, resp.StatusCode)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, srv, _ := newTestServer(t, 1<<20)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("invalid health json: %v", err)
	}
	resp.Body.Close()
	if health["status"] != "ok" || health["name"] != "Test" {
		t.Errorf("unexpected health %v", health)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `backspeak_http_requests_total{method="GET",route="GET /healthz",status_code="200"} 1`) {
		t.Errorf("expected healthz request to be counted, got:\n%s", body)
	}
}

// wsClient wraps a test websocket connection
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &wsClient{t: t, conn: conn}
	c.expectState("idle")
	return c
}

func (c *wsClient) sendJSON(msgType string, payload interface{}) {
	c.t.Helper()
	if err := c.conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload}); err != nil {
		c.t.Fatalf("write failed: %v", err)
	}
}

func (c *wsClient) sendBinary(data []byte) {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.t.Fatalf("write failed: %v", err)
	}
}

func (c *wsClient) read(v interface{}) string {
	c.t.Helper()

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("read failed: %v", err)
	}
	env, err := protocol.Decode(data, v)
	if err != nil {
		c.t.Fatalf("invalid message %s: %v", data, err)
	}
	return env.Type
}

func (c *wsClient) expectState(want string) {
	c.t.Helper()

	var state protocol.SessionState
	if typ := c.read(&state); typ != protocol.TypeSessionState {
		c.t.Fatalf("expected %s, got %s", protocol.TypeSessionState, typ)
	}
	if state.State != want {
		c.t.Fatalf("expected state %s, got %s", want, state.State)
	}
}

func (c *wsClient) expectError(kind string) {
	c.t.Helper()

	var e protocol.SessionError
	if typ := c.read(&e); typ != protocol.TypeSessionError {
		c.t.Fatalf("expected %s, got %s", protocol.TypeSessionError, typ)
	}
	if e.Kind != kind {
		c.t.Errorf("expected error kind %s, got %s (%s)", kind, e.Kind, e.Message)
	}
}

func TestWebSocketCaptureSession(t *testing.T) {
	s, srv, store := newTestServer(t, 1<<20)
	c := dial(t, srv)

	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{MediaType: "audio/pcm;rate=8000;channels=1;bits=16"})
	c.expectState("recording")

	c.sendBinary(pcm16(10, 20))
	c.sendBinary(pcm16(30, 40))
	c.sendJSON(protocol.TypeCaptureStop, nil)

	c.expectState("processing")
	c.expectState("ready")

	var ready protocol.SessionReady
	if typ := c.read(&ready); typ != protocol.TypeSessionReady {
		t.Fatalf("expected %s, got %s", protocol.TypeSessionReady, typ)
	}
	if ready.MediaType != "audio/wav" || ready.Size != encode.HeaderSize+8 {
		t.Errorf("unexpected ready payload %+v", ready)
	}

	resp, err := http.Get(srv.URL + ready.URL)
	if err != nil {
		t.Fatalf("get clip failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := int16(binary.LittleEndian.Uint16(body[encode.HeaderSize:])); got != 40 {
		t.Errorf("expected reversed first sample 40, got %d", got)
	}
	if s.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", s.SessionCount())
	}

	c.sendJSON(protocol.TypeClipRelease, nil)
	c.expectState("idle")
	if store.Len() != 0 {
		t.Errorf("expected clip released, store has %d", store.Len())
	}
}

func TestWebSocketDisconnectReleasesClip(t *testing.T) {
	s, srv, store := newTestServer(t, 1<<20)
	c := dial(t, srv)

	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{MediaType: "audio/pcm;rate=8000;channels=1"})
	c.expectState("recording")
	c.sendBinary(pcm16(1, 2, 3))
	c.sendJSON(protocol.TypeCaptureStop, nil)
	c.expectState("processing")
	c.expectState("ready")
	c.read(nil)

	if store.Len() != 1 {
		t.Fatalf("expected 1 clip, got %d", store.Len())
	}

	c.conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for (store.Len() != 0 || s.SessionCount() != 0) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.Len() != 0 {
		t.Errorf("expected clip released on disconnect, store has %d", store.Len())
	}
	if s.SessionCount() != 0 {
		t.Errorf("expected session removed, got %d", s.SessionCount())
	}
}

func TestWebSocketDecodeFailure(t *testing.T) {
	_, srv, store := newTestServer(t, 1<<20)
	c := dial(t, srv)

	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{MediaType: "audio/wav"})
	c.expectState("recording")
	c.sendBinary([]byte("this is not a wav file at all"))
	c.sendJSON(protocol.TypeCaptureStop, nil)

	c.expectState("processing")
	c.expectState("idle")
	c.expectError(protocol.ErrorKindDecode)

	if store.Len() != 0 {
		t.Errorf("expected nothing published, got %d", store.Len())
	}
}

func TestWebSocketCommandErrors(t *testing.T) {
	_, srv, _ := newTestServer(t, 1<<20)
	c := dial(t, srv)

	c.sendJSON(protocol.TypeCaptureStop, nil)
	c.expectError(protocol.ErrorKindProtocol)

	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{MediaType: "audio/webm;codecs=opus"})
	c.expectError(protocol.ErrorKindDecode)

	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{})
	c.expectState("idle")
	c.expectError(protocol.ErrorKindAcquisition)

	c.sendJSON("bogus/type", nil)
	c.expectError(protocol.ErrorKindProtocol)

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	c.expectError(protocol.ErrorKindProtocol)

	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{MediaType: "audio/ogg;codecs=opus"})
	c.expectState("recording")
	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{MediaType: "audio/ogg;codecs=opus"})
	c.expectError(protocol.ErrorKindProtocol)
}

func TestWebSocketCaptureSizeLimit(t *testing.T) {
	_, srv, store := newTestServer(t, 2048)
	c := dial(t, srv)

	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{MediaType: "audio/pcm;rate=8000;channels=1;bits=16"})
	c.expectState("recording")

	c.sendBinary(make([]byte, 1500))
	c.sendBinary(make([]byte, 1500))
	c.expectState("idle")
	c.expectError(protocol.ErrorKindTooLarge)

	c.sendJSON(protocol.TypeCaptureStop, nil)
	c.expectError(protocol.ErrorKindProtocol)
	if store.Len() != 0 {
		t.Errorf("expected nothing published, store has %d", store.Len())
	}

	// A capture within the limit still works on the same session
	c.sendJSON(protocol.TypeCaptureStart, protocol.CaptureStart{MediaType: "audio/pcm;rate=8000;channels=1;bits=16"})
	c.expectState("recording")
	c.sendBinary(pcm16(1, 2, 3))
	c.sendJSON(protocol.TypeCaptureStop, nil)
	c.expectState("processing")
	c.expectState("ready")
	var ready protocol.SessionReady
	if typ := c.read(&ready); typ != protocol.TypeSessionReady {
		t.Fatalf("expected %s, got %s", protocol.TypeSessionReady, typ)
	}
}

func TestWebSocketReadLimit(t *testing.T) {
	_, srv, _ := newTestServer(t, 2048)
	c := dial(t, srv)

	c.sendBinary(make([]byte, 4096))

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := c.conn.ReadMessage()
	if err == nil {
		t.Fatal("expected connection to be closed after an oversized frame")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatalf("connection stayed open after an oversized frame: %v", err)
	}
}
