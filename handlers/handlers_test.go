package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dhgwag/korail-reservation/config"
	"github.com/dhgwag/korail-reservation/models"
	"github.com/dhgwag/korail-reservation/supervisor"
)

type testPanel struct {
	router *gin.Engine
	sup    *supervisor.Supervisor
	dir    string
}

func newTestPanel(t *testing.T, script string) *testPanel {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	sup := supervisor.New(func(runID string) (*exec.Cmd, error) {
		return exec.Command("sh", "-c", script), nil
	}, supervisor.NewLineBuffer(100), log.New(io.Discard, "", 0))

	h := &Handler{
		Credentials: config.CredentialStore{
			Path:        filepath.Join(dir, ".env"),
			ExamplePath: filepath.Join(dir, ".env.example"),
		},
		Criteria:  config.CriteriaStore{Path: filepath.Join(dir, "search_configs.json")},
		Process:   sup,
		Logs:      sup.Buffer(),
		Heartbeat: 50 * time.Millisecond,
	}
	router := gin.New()
	h.Register(router)
	return &testPanel{router: router, sup: sup, dir: dir}
}

func (p *testPanel) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	p.router.ServeHTTP(w, req)
	return w
}

func decodeOK(t *testing.T, w *httptest.ResponseRecorder) models.OKResponse {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.OKResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func (p *testPanel) waitIdle(t *testing.T) {
	t.Helper()
	done := p.sup.Done()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not exit in time")
	}
}

func TestHealth(t *testing.T) {
	p := newTestPanel(t, "true")
	w := p.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("unexpected health response: %d %s", w.Code, w.Body.String())
	}
}

func TestEnvPartialMerge(t *testing.T) {
	p := newTestPanel(t, "true")

	w := p.do(t, http.MethodGet, "/api/env", "")
	var env map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode env: %v", err)
	}
	if len(env) != 4 || env[models.KeyKorailID] != "" {
		t.Fatalf("expected four empty keys, got %v", env)
	}

	resp := decodeOK(t, p.do(t, http.MethodPost, "/api/env", `{"KORAIL_ID":"010-1234-5678","KORAIL_PW":"pw"}`))
	if !resp.OK {
		t.Fatalf("expected ok, got %+v", resp)
	}
	resp = decodeOK(t, p.do(t, http.MethodPost, "/api/env", `{"TELEGRAM_CHAT_ID":"42","UNKNOWN":"x"}`))
	if !resp.OK {
		t.Fatalf("expected ok, got %+v", resp)
	}

	w = p.do(t, http.MethodGet, "/api/env", "")
	env = nil
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode env: %v", err)
	}
	if env[models.KeyKorailID] != "010-1234-5678" || env[models.KeyKorailPW] != "pw" || env[models.KeyTelegramChatID] != "42" {
		t.Fatalf("unexpected merged env: %v", env)
	}
	if _, ok := env["UNKNOWN"]; ok {
		t.Fatalf("unknown keys must be ignored: %v", env)
	}
}

func TestSaveEnvMalformedJSON(t *testing.T) {
	p := newTestPanel(t, "true")
	w := p.do(t, http.MethodPost, "/api/env", `{"KORAIL_ID":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestReadFailuresAreOKFalse(t *testing.T) {
	p := newTestPanel(t, "true")
	// a directory in place of the credential file cannot be parsed
	if err := os.Mkdir(filepath.Join(p.dir, ".env"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p.dir, "search_configs.json"), []byte(`[{"dep_station":`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/api/env", "/api/configs"} {
		resp := decodeOK(t, p.do(t, http.MethodGet, path, ""))
		if resp.OK || !strings.Contains(resp.Error, "Failed to read") {
			t.Fatalf("%s: expected ok:false with read error, got %+v", path, resp)
		}
	}
}

func TestConfigsRoundTrip(t *testing.T) {
	p := newTestPanel(t, "true")

	w := p.do(t, http.MethodGet, "/api/configs", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", w.Body.String())
	}

	body := `[
		{"dep_station":"서울","arr_station":"부산","dep_date":"20250501","dep_time":"060000","train_type":"KTX","time_start":"09","time_end":"12","seat_type":"general"},
		{"dep_station":"부산","arr_station":"서울","dep_date":"20250503","dep_time":"000000","train_type":"ALL","time_start":null,"time_end":null,"seat_type":"any"}
	]`
	if resp := decodeOK(t, p.do(t, http.MethodPost, "/api/configs", body)); !resp.OK {
		t.Fatalf("expected ok, got %+v", resp)
	}

	w = p.do(t, http.MethodGet, "/api/configs", "")
	var list []models.SearchCriterion
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode configs: %v", err)
	}
	if len(list) != 2 || list[0].DepStation != "서울" || list[1].DepStation != "부산" {
		t.Fatalf("expected order preserved, got %+v", list)
	}
	if list[1].TimeStart != nil || list[0].TimeStart == nil || *list[0].TimeStart != "09" {
		t.Fatalf("unexpected windows: %+v", list)
	}
}

func TestSaveConfigsRejectsMissingStation(t *testing.T) {
	p := newTestPanel(t, "true")
	path := filepath.Join(p.dir, "search_configs.json")
	if err := os.WriteFile(path, []byte("[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := decodeOK(t, p.do(t, http.MethodPost, "/api/configs", `[{"arr_station":"부산","dep_date":"20250501"}]`))
	if resp.OK || !strings.Contains(resp.Error, "config [1]") || !strings.Contains(resp.Error, "dep_station") {
		t.Fatalf("expected presence failure, got %+v", resp)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "[]\n" {
		t.Fatalf("file must be unchanged after a rejected save, got %q", b)
	}
}

func TestRunStopConflicts(t *testing.T) {
	p := newTestPanel(t, "exec sleep 5")

	resp := decodeOK(t, p.do(t, http.MethodPost, "/api/run", ""))
	if !resp.OK || resp.RunID == "" {
		t.Fatalf("expected ok with run id, got %+v", resp)
	}

	second := decodeOK(t, p.do(t, http.MethodPost, "/api/run", ""))
	if second.OK || second.Error != supervisor.ErrAlreadyRunning.Error() {
		t.Fatalf("expected already running, got %+v", second)
	}

	var status models.StatusResponse
	w := p.do(t, http.MethodGet, "/api/status", "")
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.RunID != resp.RunID {
		t.Fatalf("unexpected status: %+v", status)
	}

	if stop := decodeOK(t, p.do(t, http.MethodPost, "/api/stop", "")); !stop.OK {
		t.Fatalf("expected stop ok, got %+v", stop)
	}
	p.waitIdle(t)

	again := decodeOK(t, p.do(t, http.MethodPost, "/api/stop", ""))
	if again.OK || again.Error != supervisor.ErrNoProcess.Error() {
		t.Fatalf("expected no process, got %+v", again)
	}
}

type sseEvent struct {
	id, data string
}

func readEvents(t *testing.T, srv *httptest.Server, lastEventID string) []sseEvent {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/log", nil)
	if err != nil {
		t.Fatal(err)
	}
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET /api/log: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}

	var events []sseEvent
	for _, block := range strings.Split(string(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "id:"):
				ev.id = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			case strings.HasPrefix(line, "data:"):
				ev.data = strings.TrimPrefix(line, "data:")
			}
		}
		if ev.data != "" {
			events = append(events, ev)
		}
	}
	return events
}

func eventData(events []sseEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.data
	}
	return out
}

func TestStreamLogFollowsRunAndEnds(t *testing.T) {
	p := newTestPanel(t, "echo one; sleep 0.2; echo two")
	srv := httptest.NewServer(p.router)
	defer srv.Close()

	if resp := decodeOK(t, p.do(t, http.MethodPost, "/api/run", "")); !resp.OK {
		t.Fatalf("run: %+v", resp)
	}

	events := readEvents(t, srv, "")
	got := eventData(events)
	want := []string{supervisor.StartLine, "one", "two", supervisor.ExitLine, EndOfStream}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected stream:\n got %q\nwant %q", got, want)
	}
	if events[0].id != "1" || events[3].id != "4" {
		t.Fatalf("expected offset event ids, got %+v", events)
	}
}

func TestStreamLogResumesFromLastEventID(t *testing.T) {
	p := newTestPanel(t, "echo one; echo two")
	srv := httptest.NewServer(p.router)
	defer srv.Close()

	if resp := decodeOK(t, p.do(t, http.MethodPost, "/api/run", "")); !resp.OK {
		t.Fatalf("run: %+v", resp)
	}
	p.waitIdle(t)

	got := eventData(readEvents(t, srv, "2"))
	want := []string{"two", supervisor.ExitLine, EndOfStream}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected resumed stream:\n got %q\nwant %q", got, want)
	}
}

func TestStreamLogWithoutRunEndsImmediately(t *testing.T) {
	p := newTestPanel(t, "true")
	srv := httptest.NewServer(p.router)
	defer srv.Close()

	got := eventData(readEvents(t, srv, ""))
	if len(got) != 1 || got[0] != EndOfStream {
		t.Fatalf("expected only the end sentinel, got %q", got)
	}
}

func TestLogSince(t *testing.T) {
	p := newTestPanel(t, "echo one; echo two")
	if resp := decodeOK(t, p.do(t, http.MethodPost, "/api/run", "")); !resp.OK {
		t.Fatalf("run: %+v", resp)
	}
	p.waitIdle(t)

	w := p.do(t, http.MethodGet, "/api/log/since?offset=1", "")
	var chunk models.LogChunk
	if err := json.Unmarshal(w.Body.Bytes(), &chunk); err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	if strings.Join(chunk.Lines, "|") != "one|two|"+supervisor.ExitLine {
		t.Fatalf("unexpected lines: %q", chunk.Lines)
	}
	if chunk.Next != 4 || !chunk.Finished {
		t.Fatalf("unexpected cursor: next=%d finished=%v", chunk.Next, chunk.Finished)
	}

	w = p.do(t, http.MethodGet, "/api/log/since?offset=4", "")
	chunk = models.LogChunk{}
	if err := json.Unmarshal(w.Body.Bytes(), &chunk); err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Next != 4 {
		t.Fatalf("expected empty page at the end, got %+v", chunk)
	}
}
