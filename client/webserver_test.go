package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/is"

	"micctl/audio"
	"micctl/common"
	"micctl/gate"
)

func newTestServer(t *testing.T) (*testApp, *httptest.Server) {
	t.Helper()
	app := newTestApp(t)
	srv := httptest.NewServer(NewWebServer(app.AppState).Handler())
	t.Cleanup(srv.Close)
	return app, srv
}

func postCommand(t *testing.T, srv *httptest.Server, command string, args any) *http.Response {
	t.Helper()
	body := map[string]any{"command": command}
	if args != nil {
		body["args"] = args
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.Post(srv.URL+"/api/command", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestAPIState(t *testing.T) {
	is := is.New(t)
	_, srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/api/state")
	is.NoErr(err)
	defer res.Body.Close()
	is.Equal(res.StatusCode, http.StatusOK)

	st := decode[audio.RuntimeStatus](t, res)
	is.Equal(st.EngineState, audio.EngineIdle)
	is.Equal(st.GateState.Mode, gate.ModePTT)
	is.Equal(st.GateState.LastSource, "system")
}

func TestAPIDevices(t *testing.T) {
	is := is.New(t)
	_, srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/api/devices")
	is.NoErr(err)
	defer res.Body.Close()

	list := decode[audio.DeviceList](t, res)
	is.Equal(len(list.Inputs), 1)
	is.Equal(list.Inputs[0].ID, "in#0#Headset Mic")
}

func TestCommandSetGate(t *testing.T) {
	is := is.New(t)
	app, srv := newTestServer(t)

	res := postCommand(t, srv, common.CommandSetGate, common.SetGateArgs{Open: true, Source: "web"})
	is.Equal(res.StatusCode, http.StatusOK)

	st := decode[audio.RuntimeStatus](t, res)
	is.True(st.GateState.IsOpen)
	is.Equal(st.GateState.LastSource, "web")
	is.True(app.GateState().IsOpen)

	res = postCommand(t, srv, common.CommandToggleGate, nil)
	is.Equal(res.StatusCode, http.StatusOK)
	is.True(!app.GateState().IsOpen)
}

func TestCommandEngine(t *testing.T) {
	is := is.New(t)
	app, srv := newTestServer(t)

	res := postCommand(t, srv, common.CommandStartEngine, nil)
	is.Equal(res.StatusCode, http.StatusOK)
	is.Equal(decode[audio.RuntimeStatus](t, res).EngineState, audio.EngineRunning)

	res = postCommand(t, srv, common.CommandStopEngine, nil)
	is.Equal(res.StatusCode, http.StatusOK)
	is.True(!app.EngineRunning())
}

func TestCommandSettings(t *testing.T) {
	is := is.New(t)
	app, srv := newTestServer(t)

	res := postCommand(t, srv, common.CommandSetLaunchOnStartup, common.SetEnabledArgs{Enabled: true})
	is.Equal(res.StatusCode, http.StatusOK)
	is.True(app.Config().LaunchOnStartup)
	is.Equal(app.launches.seen(), []bool{true})

	res = postCommand(t, srv, common.CommandSetMinimizeToTray, common.SetEnabledArgs{Enabled: true})
	is.Equal(res.StatusCode, http.StatusOK)
	is.True(app.Config().MinimizeToTray)

	res = postCommand(t, srv, common.CommandSetMinimizeToTray, nil)
	is.Equal(res.StatusCode, http.StatusBadRequest)

	app.launches.fail(errors.New("access denied"))
	res = postCommand(t, srv, common.CommandSetLaunchOnStartup, common.SetEnabledArgs{Enabled: false})
	is.Equal(res.StatusCode, http.StatusInternalServerError)
	is.Equal(decode[common.ErrorReply](t, res).Error, "system")
	is.True(app.Config().LaunchOnStartup)
}

func TestCommandErrors(t *testing.T) {
	is := is.New(t)
	app, srv := newTestServer(t)

	tests := []struct {
		name    string
		command string
		args    any
		status  int
		kind    string
	}{
		{"unknown command", "reboot", nil, http.StatusBadRequest, "invalid_argument"},
		{"missing args", common.CommandSetGate, nil, http.StatusBadRequest, "invalid_argument"},
		{"bad mode", common.CommandSetHotkey, common.SetHotkeyArgs{Accelerator: "Ctrl+M", Mode: "latch"}, http.StatusBadRequest, "invalid_argument"},
		{"bad accelerator", common.CommandSetHotkey, common.SetHotkeyArgs{Accelerator: "Ctrl+Mouse9", Mode: "ptt"}, http.StatusBadRequest, "hotkey"},
		{"bad route", common.CommandSaveRoute, common.SaveRouteArgs{InputDeviceID: "mic", BridgeOutputDeviceID: "out#0#x"}, http.StatusBadRequest, "invalid_argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			res := postCommand(t, srv, tt.command, tt.args)
			is.Equal(res.StatusCode, tt.status)
			reply := decode[common.ErrorReply](t, res)
			is.Equal(reply.Error, tt.kind)
			is.True(reply.Message != "")
		})
	}

	// A saved route to a vanished device fails with 404 on start.
	res := postCommand(t, srv, common.CommandSaveRoute, common.SaveRouteArgs{
		InputDeviceID:        "in#7#Unplugged",
		BridgeOutputDeviceID: app.dir.Route().OutputDeviceID,
	})
	is.Equal(res.StatusCode, http.StatusOK)
	res = postCommand(t, srv, common.CommandStartEngine, nil)
	is.Equal(res.StatusCode, http.StatusNotFound)
	is.Equal(decode[common.ErrorReply](t, res).Error, "device_not_found")
}

func TestCommandInvalidJSON(t *testing.T) {
	is := is.New(t)
	_, srv := newTestServer(t)

	res, err := http.Post(srv.URL+"/api/command", "application/json", strings.NewReader("{"))
	is.NoErr(err)
	defer res.Body.Close()
	is.Equal(res.StatusCode, http.StatusBadRequest)
}

func sendRaw(t *testing.T, srv *httptest.Server, contentType, origin, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/command", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", contentType)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

const openGateBody = `{"command":"set_gate","args":{"open":true,"source":"evil"}}`

func TestCommandRejectsCrossOrigin(t *testing.T) {
	is := is.New(t)
	app, srv := newTestServer(t)

	res := sendRaw(t, srv, "application/json", "https://evil.example", openGateBody)
	is.Equal(res.StatusCode, http.StatusForbidden)
	is.Equal(decode[common.ErrorReply](t, res).Error, "invalid_argument")
	is.True(!app.GateState().IsOpen)

	res = sendRaw(t, srv, "application/json; charset=utf-8", srv.URL, openGateBody)
	is.Equal(res.StatusCode, http.StatusOK) // the panel's own origin is fine
	is.True(app.GateState().IsOpen)
}

func TestCommandRequiresJSONContentType(t *testing.T) {
	is := is.New(t)
	app, srv := newTestServer(t)

	for _, ct := range []string{"text/plain", "application/x-www-form-urlencoded", ""} {
		res := sendRaw(t, srv, ct, "", openGateBody)
		is.Equal(res.StatusCode, http.StatusUnsupportedMediaType)
	}
	is.True(!app.GateState().IsOpen)
}

type wireEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestWebSocketPushesGateChanges(t *testing.T) {
	is := is.New(t)
	_, srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	is.NoErr(err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first, second wireEvent
	is.NoErr(conn.ReadJSON(&first))
	is.NoErr(conn.ReadJSON(&second))
	is.Equal(first.Type, common.EventGateStateChanged)
	is.Equal(second.Type, common.EventEngineStateChanged)
	is.True(first.ID != "")

	res := postCommand(t, srv, common.CommandSetGate, common.SetGateArgs{Open: true, Source: "web"})
	is.Equal(res.StatusCode, http.StatusOK)

	for {
		var ev wireEvent
		is.NoErr(conn.ReadJSON(&ev))
		if ev.Type != common.EventGateStateChanged {
			continue
		}
		var st gate.State
		is.NoErr(json.Unmarshal(ev.Data, &st))
		is.True(st.IsOpen)
		is.Equal(st.LastSource, "web")
		return
	}
}

func TestWebSocketRejectsCrossOrigin(t *testing.T) {
	is := is.New(t)
	_, srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	is.True(err != nil)
	is.True(res != nil)
	is.Equal(res.StatusCode, http.StatusForbidden)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {srv.URL}})
	is.NoErr(err)
	conn.Close()
}

func TestListenFromSkipsBusyPort(t *testing.T) {
	is := is.New(t)

	first, err := listenFrom("127.0.0.1:0")
	is.NoErr(err)
	defer first.Close()

	busy := first.Addr().String()
	second, err := listenFrom(busy)
	is.NoErr(err)
	defer second.Close()
	is.True(second.Addr().String() != busy)

	_, err = listenFrom("no-port")
	is.Equal(common.KindOf(err), common.KindConfig)
}
