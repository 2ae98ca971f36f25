package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	hlog "github.com/berth-dev/hone/internal/log"
	"github.com/berth-dev/hone/internal/loop"
	"github.com/berth-dev/hone/internal/orchestrator"
	"github.com/berth-dev/hone/internal/session"
	"github.com/berth-dev/hone/internal/testutil"
)

func newTestServer(t *testing.T, fake *testutil.FakeCapability, apiKey string) *httptest.Server {
	t.Helper()
	orch := orchestrator.New(fake, session.NewMemoryStore(), orchestrator.WithLogger(hlog.Discard()))
	srv := httptest.NewServer(NewRouter(orch, apiKey, hlog.Discard()))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeCapability(50), "secret")

	var body HealthResponse
	if status := doJSON(t, srv, http.MethodGet, "/health", nil, &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body.Status != "ok" {
		t.Errorf("status body = %q", body.Status)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeCapability(45, 65, 93), "")

	var st loop.State
	if status := doJSON(t, srv, http.MethodPost, "/sessions", CreateRequest{Prompt: "Write an essay"}, &st); status != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", status)
	}
	if st.Phase != loop.PhaseSuspended || st.Mode != loop.ModeNeedsDetail {
		t.Fatalf("created state: phase %q mode %q", st.Phase, st.Mode)
	}

	var snap orchestrator.Snapshot
	if status := doJSON(t, srv, http.MethodGet, "/sessions/"+st.ID, nil, &snap); status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	if !snap.Suspended || snap.State.ID != st.ID {
		t.Errorf("snapshot = %+v", snap)
	}

	var errBody errorResponse
	if status := doJSON(t, srv, http.MethodPost, "/sessions/"+st.ID+"/resume", ResumeRequest{}, &errBody); status != http.StatusUnprocessableEntity {
		t.Errorf("empty patch status = %d, want 422", status)
	}
	if errBody.Error == "" {
		t.Error("error body should carry a message")
	}

	if status := doJSON(t, srv, http.MethodPost, "/sessions/"+st.ID+"/advance", nil, &errBody); status != http.StatusConflict {
		t.Errorf("advance while suspended status = %d, want 409", status)
	}

	if status := doJSON(t, srv, http.MethodPost, "/sessions/"+st.ID+"/resume", ResumeRequest{Feedback: "about dogs"}, &st); status != http.StatusOK {
		t.Fatalf("resume status = %d", status)
	}
	if st.Mode != loop.ModeNeedsChoice || len(st.Options) != loop.OptionCount {
		t.Fatalf("after detail: mode %q options %v", st.Mode, st.Options)
	}

	if status := doJSON(t, srv, http.MethodPost, "/sessions/"+st.ID+"/resume", ResumeRequest{Choice: st.Options[0]}, &st); status != http.StatusOK {
		t.Fatalf("resume status = %d", status)
	}
	if st.Phase != loop.PhaseDone || st.Score != 93 {
		t.Fatalf("after choice: phase %q score %d", st.Phase, st.Score)
	}

	var chat ChatResponse
	if status := doJSON(t, srv, http.MethodPost, "/sessions/"+st.ID+"/chat", nil, &chat); status != http.StatusOK {
		t.Fatalf("chat status = %d", status)
	}
	if chat.Response == "" {
		t.Error("chat response should not be empty")
	}

	var list []session.Summary
	if status := doJSON(t, srv, http.MethodGet, "/sessions", nil, &list); status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if len(list) != 1 || list[0].ID != st.ID || list[0].Phase != loop.PhaseDone {
		t.Errorf("list = %+v", list)
	}

	if status := doJSON(t, srv, http.MethodDelete, "/sessions/"+st.ID, nil, nil); status != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", status)
	}
	if status := doJSON(t, srv, http.MethodGet, "/sessions/"+st.ID, nil, &errBody); status != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", status)
	}
}

func TestCreateWithoutAdvance(t *testing.T) {
	fake := testutil.NewFakeCapability(45)
	srv := newTestServer(t, fake, "")

	advance := false
	var st loop.State
	if status := doJSON(t, srv, http.MethodPost, "/sessions", CreateRequest{Prompt: "Write an essay", Advance: &advance}, &st); status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	if st.Phase != loop.PhaseJudging || st.IterationCount != 0 {
		t.Errorf("state = phase %q iterations %d, want judging 0", st.Phase, st.IterationCount)
	}
	if fake.CallCount("score") != 0 {
		t.Error("no provider call expected without advance")
	}

	if status := doJSON(t, srv, http.MethodPost, "/sessions/"+st.ID+"/advance", nil, &st); status != http.StatusOK {
		t.Fatalf("advance status = %d", status)
	}
	if st.Phase != loop.PhaseSuspended {
		t.Errorf("phase %q, want suspended", st.Phase)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeCapability(50), "")

	var errBody errorResponse
	if status := doJSON(t, srv, http.MethodPost, "/sessions", CreateRequest{Prompt: "  "}, &errBody); status != http.StatusBadRequest {
		t.Errorf("empty prompt status = %d, want 400", status)
	}
	if status := doJSON(t, srv, http.MethodPost, "/sessions", map[string]string{"prompt": "x", "bogus": "y"}, &errBody); status != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", status)
	}
	if status := doJSON(t, srv, http.MethodPost, "/sessions/missing/advance", nil, &errBody); status != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", status)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeCapability(50), "secret")

	resp, err := http.Get(srv.URL + "/sessions")
	if err != nil {
		t.Fatalf("GET /sessions: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /sessions with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status with token = %d, want 200", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{loop.NewNotFoundError("x"), http.StatusNotFound},
		{&loop.PatchError{Mode: loop.ModeNeedsDetail, Reason: "r"}, http.StatusUnprocessableEntity},
		{loop.NewTransitionError("x", loop.PhaseDone, "resume"), http.StatusConflict},
		{orchestrator.ErrEmptyPrompt, http.StatusBadRequest},
		{&loop.CapabilityError{Op: "chat", Err: testutil.ErrFake}, http.StatusBadGateway},
		{testutil.ErrFake, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCreateReturnsIDWhenAdvanceFails(t *testing.T) {
	fake := testutil.NewFakeCapability(50)
	fake.Block = true
	orch := orchestrator.New(fake, session.NewMemoryStore(), orchestrator.WithLogger(hlog.Discard()))
	router := NewRouter(orch, "", hlog.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body := bytes.NewBufferString(`{"prompt":"Write an essay"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions", body).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" || resp.Error == "" {
		t.Fatalf("error body = %+v, want error and session_id", resp)
	}

	snap, err := orch.GetState(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("GetState(%q) failed: %v", resp.SessionID, err)
	}
	if snap.State.Phase != loop.PhaseJudging {
		t.Errorf("stored phase = %q, want judging", snap.State.Phase)
	}
}
