package control

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"btlink/pkg/audio"
	"btlink/pkg/config"
	"btlink/pkg/link"
	"btlink/pkg/transport/mem"
)

func newTestServer(t *testing.T) (*Server, *link.Link) {
	t.Helper()
	netw := mem.NewNetwork()
	lnk := link.New(netw.Transport("ctl-test"), link.Config{
		Format:    audio.Format{SampleRate: 48000, Channels: 1, SampleWidth: 2},
		ChunkSize: 64,
	}, nil)
	srv := New(config.ControlConfig{Enabled: true, ListenAddr: "127.0.0.1:0"}, lnk, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start control server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = lnk.Close()
	})
	return srv, lnk
}

func getState(t *testing.T, srv *Server) string {
	t.Helper()
	resp, err := http.Get("http://" + srv.Addr() + "/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	var st stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st.State
}

func post(t *testing.T, srv *Server, path string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post("http://"+srv.Addr()+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func TestStateAndLifecycleEndpoints(t *testing.T) {
	srv, lnk := newTestServer(t)

	if got := getState(t, srv); got != "none" {
		t.Fatalf("initial state = %q", got)
	}

	resp := post(t, srv, "/start", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if got := getState(t, srv); got != "listening" {
		t.Fatalf("state after start = %q", got)
	}
	if lnk.State() != link.StateListening {
		t.Fatalf("link state = %v", lnk.State())
	}

	resp = post(t, srv, "/stop", nil)
	resp.Body.Close()
	if got := getState(t, srv); got != "none" {
		t.Fatalf("state after stop = %q", got)
	}
}

func TestConnectEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv, "/connect", []byte(`{}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("connect without address: status = %d", resp.StatusCode)
	}

	resp = post(t, srv, "/connect", []byte(`{not json`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("connect with bad body: status = %d", resp.StatusCode)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/connect")
	if err != nil {
		t.Fatalf("get connect: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET connect: status = %d", resp.StatusCode)
	}
}

func TestConnectEndpointStartsAttempt(t *testing.T) {
	srv, lnk := newTestServer(t)

	resp := post(t, srv, "/connect", []byte(`{"address":"nowhere","sender":true}`))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("connect status = %d", resp.StatusCode)
	}
	var st stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != "connecting" {
		t.Fatalf("state after connect = %q", st.State)
	}
	_ = lnk
}

func TestWebSocketStreamsTransitions(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	readEvent := func() Event {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		return ev
	}

	ev := readEvent()
	if ev.Type != "state" {
		t.Fatalf("initial event type = %q", ev.Type)
	}
	if payloadState(t, ev) != "none" {
		t.Fatalf("initial event state = %v", ev.Payload)
	}

	resp := post(t, srv, "/start", nil)
	resp.Body.Close()

	ev = readEvent()
	if payloadState(t, ev) != "listening" {
		t.Fatalf("broadcast state = %v", ev.Payload)
	}
}

func payloadState(t *testing.T, ev Event) string {
	t.Helper()
	m, ok := ev.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type %T", ev.Payload)
	}
	s, _ := m["state"].(string)
	return s
}

func TestConcurrentBroadcastsToOneClient(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	const writers = 8
	const perWriter = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				srv.hub.Broadcast(Event{Type: "state", Payload: StatePayload{State: "listening"}})
			}
		}()
	}

	// initial state event plus every broadcast, all intact
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < writers*perWriter+1; i++ {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		if ev.Type != "state" {
			t.Fatalf("event %d type = %q", i, ev.Type)
		}
	}
	wg.Wait()
}

func TestHubDropsClosedClients(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		srv.hub.Broadcast(Event{Type: "state", Payload: StatePayload{State: "none"}})
		if srv.hub.clientCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub still tracks %d clients", srv.hub.clientCount())
}
