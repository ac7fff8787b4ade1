package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/airmouse/internal/app"
	"github.com/ayusman/airmouse/internal/config"
	"github.com/ayusman/airmouse/internal/detector"
	"github.com/ayusman/airmouse/internal/input"
	"github.com/ayusman/airmouse/internal/session"
	"github.com/ayusman/airmouse/internal/store"
)

type testEnv struct {
	store    *store.Store
	app      *app.App
	detector *detector.MockDetector
	sessions *session.Manager
	pointer  *input.Recorder
	server   *httptest.Server
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupEnvWith(t, true, config.DefaultTunables())
}

// setupEnvWith wires the server the way main does for the given frame
// mirroring and startup tunables.
func setupEnvWith(t *testing.T, mirrorFrames bool, tun config.Tunables) *testEnv {
	t.Helper()
	tun = tun.ForFrames(mirrorFrames)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	det := detector.NewMockDetector()
	rec := input.NewRecorder(1920, 1080)

	a := app.New(app.Config{
		Detector: det,
		Pointer:  rec,
		Store:    st,
		Session:  tun.Session(1920, 1080),
		Perform:  true,
	})

	frameCfg := tun.Session(1920, 1080)
	frameCfg.Dispatch.SuppressZoomRepeat = true
	sessions := session.NewManager(frameCfg, time.Minute, nil)

	srv := New(Config{
		Store:                   st,
		App:                     a,
		Detector:                det,
		Sessions:                sessions,
		MirrorFrames:            mirrorFrames,
		Tunables:                tun,
		ScreenWidth:             1920,
		ScreenHeight:            1080,
		FrameSuppressZoomRepeat: true,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{store: st, app: a, detector: det, sessions: sessions, pointer: rec, server: ts}
}

func encodedFrame(t *testing.T) []byte {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer mat.Close()

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		t.Fatalf("IMEncode() error = %v", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

func postFrame(t *testing.T, env *testEnv, sessionID string, body []byte) (*http.Response, map[string]interface{}) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/frame", bytes.NewReader(body))
	req.Header.Set("Content-Type", "image/jpeg")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("POST /frame error = %v", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAPI_FrameWorkflow(t *testing.T) {
	env := setupEnv(t)
	env.detector.SetHands([]detector.HandLandmarks{detector.PinchLandmarks()})
	body := encodedFrame(t)

	// 1. First frame starts a session and clicks
	resp, out := postFrame(t, env, "", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	id := resp.Header.Get(SessionHeader)
	if id == "" || out["session"] != id {
		t.Fatalf("session header %q, body %v", id, out["session"])
	}
	if out["found"] != true || out["gesture"] != "left_click" {
		t.Errorf("unexpected response: %v", out)
	}
	if env.pointer.Count("click") != 1 {
		t.Errorf("clicks = %d, want 1", env.pointer.Count("click"))
	}

	// 2. Same session continues its cooldown
	resp, _ = postFrame(t, env, id, body)
	if resp.Header.Get(SessionHeader) != id {
		t.Errorf("session not reused")
	}
	s, err := env.sessions.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := s.State().Dispatch.CooldownRemaining; got != 14 {
		t.Errorf("cooldown = %d, want 14", got)
	}
	if env.pointer.Count("click") != 1 {
		t.Errorf("clicks = %d, want 1 during cooldown", env.pointer.Count("click"))
	}

	// 3. A second caller gets independent state
	resp, _ = postFrame(t, env, "", body)
	if resp.Header.Get(SessionHeader) == id {
		t.Error("new caller should get a new session")
	}
	if env.pointer.Count("click") != 2 {
		t.Errorf("clicks = %d, want 2", env.pointer.Count("click"))
	}

	// 4. Fired clicks are in the action log
	listResp, err := env.server.Client().Get(env.server.URL + "/api/actions?session=" + id)
	if err != nil {
		t.Fatalf("GET /api/actions error = %v", err)
	}
	var listed struct {
		Actions []struct {
			SessionID string `json:"session_id"`
			Action    string `json:"action"`
		} `json:"actions"`
	}
	json.NewDecoder(listResp.Body).Decode(&listed)
	listResp.Body.Close()
	if len(listed.Actions) != 1 || listed.Actions[0].Action != "left_click" {
		t.Errorf("unexpected action log: %+v", listed.Actions)
	}
}

func TestAPI_FrameNoHand(t *testing.T) {
	env := setupEnv(t)

	resp, out := postFrame(t, env, "", encodedFrame(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if out["found"] != false {
		t.Errorf("expected found=false, got %v", out)
	}
	if _, ok := out["gesture"]; ok {
		t.Errorf("no gesture expected without a hand: %v", out)
	}
}

func TestAPI_FramePerformOff(t *testing.T) {
	env := setupEnv(t)
	env.app.SetPerform(false)
	env.detector.SetHands([]detector.HandLandmarks{detector.PinchLandmarks()})

	resp, out := postFrame(t, env, "", encodedFrame(t))
	if out["gesture"] != "left_click" {
		t.Errorf("classification should still run: %v", out)
	}
	if len(env.pointer.Events()) != 0 {
		t.Errorf("pointer driven while perform is off: %v", env.pointer.Events())
	}

	s, _ := env.sessions.Get(resp.Header.Get(SessionHeader))
	if got := s.State().Dispatch.CooldownRemaining; got != 15 {
		t.Errorf("cooldown = %d, want 15", got)
	}
}

func TestAPI_FrameBadImage(t *testing.T) {
	env := setupEnv(t)

	for _, body := range [][]byte{nil, []byte("definitely not a jpeg")} {
		resp, out := postFrame(t, env, "", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
		if out["error"] != "could not decode image" {
			t.Errorf("unexpected error body: %v", out)
		}
	}
	if env.detector.Calls() != 0 {
		t.Error("detector must not run on undecodable frames")
	}
}

func TestAPI_SettingsApplyToSessions(t *testing.T) {
	env := setupEnv(t)

	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/settings", strings.NewReader(`{"cooldown": 4}`))
	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("PUT /api/settings error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if got := env.sessions.Config().Dispatch.Cooldown; got != 4 {
		t.Errorf("frame session cooldown = %d, want 4", got)
	}
	if !env.sessions.Config().Dispatch.SuppressZoomRepeat {
		t.Error("frame sessions keep zoom repeat suppression")
	}

	env.detector.SetHands([]detector.HandLandmarks{detector.PinchLandmarks()})
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	env.app.ProcessFrame(&frame)
	if got := env.app.Session().State().Dispatch.CooldownRemaining; got != 4 {
		t.Errorf("local cooldown = %d, want 4", got)
	}

	getResp, err := env.server.Client().Get(env.server.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET /api/settings error = %v", err)
	}
	defer getResp.Body.Close()
	var got config.Tunables
	json.NewDecoder(getResp.Body).Decode(&got)
	if got.Cooldown != 4 {
		t.Errorf("GET cooldown = %d, want 4", got.Cooldown)
	}
}

// lastMove returns the x of the most recent pointer move.
func lastMove(t *testing.T, rec *input.Recorder) float64 {
	t.Helper()
	events := rec.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Op == "move" {
			return events[i].X
		}
	}
	t.Fatal("no pointer move recorded")
	return 0
}

func TestAPI_SettingsMirrorOutputIgnoredForMirroredFrames(t *testing.T) {
	env := setupEnv(t)

	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/settings", strings.NewReader(`{"mirror_output": true}`))
	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("PUT /api/settings error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if env.sessions.Config().Pointer.MirrorOutput {
		t.Error("frame sessions flip output although frames are mirrored")
	}

	env.detector.SetHands([]detector.HandLandmarks{detector.PointingLandmarks()})
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	res := env.app.ProcessFrame(&frame)
	if got := lastMove(t, env.pointer); got != res.Target.X {
		t.Errorf("local pointer x = %v, want unflipped %v", got, res.Target.X)
	}

	httpResp, _ := postFrame(t, env, "", encodedFrame(t))
	sess, err := env.sessions.Get(httpResp.Header.Get(SessionHeader))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got, want := lastMove(t, env.pointer), sess.State().Pointer.X; got != want {
		t.Errorf("/frame pointer x = %v, want unflipped %v", got, want)
	}
}

func TestAPI_UnmirroredFramesFlipOutputOnce(t *testing.T) {
	tun := config.DefaultTunables()
	tun.MirrorOutput = true
	env := setupEnvWith(t, false, tun)
	env.detector.SetHands([]detector.HandLandmarks{detector.PointingLandmarks()})

	if !env.sessions.Config().Pointer.MirrorOutput {
		t.Fatal("frame sessions should flip output when frames are not mirrored")
	}

	resp, _ := postFrame(t, env, "", encodedFrame(t))
	sess, err := env.sessions.Get(resp.Header.Get(SessionHeader))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got, want := lastMove(t, env.pointer), 1920-sess.State().Pointer.X; got != want {
		t.Errorf("/frame pointer x = %v, want %v", got, want)
	}
}

func TestAPI_HandWebSocket(t *testing.T) {
	env := setupEnv(t)
	env.detector.SetHands([]detector.HandLandmarks{detector.PointingLandmarks()})

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/hand/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	// The handler subscribes after the upgrade completes, so keep feeding frames.
	done := make(chan struct{})
	stopped := make(chan struct{})
	defer func() {
		close(done)
		<-stopped
	}()
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				env.app.ProcessFrame(&frame)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var data app.HandData
	if err := conn.ReadJSON(&data); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !data.Found || data.Gesture != "move" || data.Width != 640 {
		t.Errorf("unexpected hand data: %+v", data)
	}
}

func TestAPI_VideoFeed(t *testing.T) {
	env := setupEnv(t)

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	env.app.ProcessFrame(&frame)

	resp, err := env.server.Client().Get(env.server.URL + "/video_feed")
	if err != nil {
		t.Fatalf("GET /video_feed error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if strings.TrimSpace(line) != "--frame" {
		t.Errorf("first line = %q, want --frame", line)
	}
}
