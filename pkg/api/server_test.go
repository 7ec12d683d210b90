package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/reelview/pkg/bus"
	"github.com/odvcencio/reelview/pkg/capture"
	"github.com/odvcencio/reelview/pkg/fanout"
	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/movie"
	"github.com/odvcencio/reelview/pkg/nyra"
	"github.com/odvcencio/reelview/pkg/orchestrator"
	"github.com/odvcencio/reelview/pkg/session"
)

type testPage struct {
	subtitles []string
}

func (p *testPage) Navigate(ctx context.Context, url string) error { return nil }
func (p *testPage) Exists(ctx context.Context, selector string) (bool, error) {
	return selector == "video", nil
}
func (p *testPage) Click(ctx context.Context, selector string) error { return nil }
func (p *testPage) ClickAt(ctx context.Context, x, y float64) error  { return nil }
func (p *testPage) ClickByText(ctx context.Context, phrases []string) (string, error) {
	return "", capture.ErrNoTextMatch
}
func (p *testPage) ScrollTo(ctx context.Context, x, y float64) error { return nil }
func (p *testPage) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	return []byte("png-bytes"), nil
}
func (p *testPage) Screenshot(ctx context.Context) ([]byte, error) { return []byte("png-bytes"), nil }
func (p *testPage) TextContents(ctx context.Context, selector string) ([]string, error) {
	if selector == ".subtitle" {
		return p.subtitles, nil
	}
	return nil, nil
}
func (p *testPage) VideoState(ctx context.Context, selector string) (*capture.VideoState, error) {
	return &capture.VideoState{IsPlaying: true, CurrentTime: 30, Duration: 5400, Volume: 1, PlaybackRate: 1}, nil
}
func (p *testPage) Close() error { return nil }

type testBrowser struct{ page *testPage }

func (b *testBrowser) NewPage(ctx context.Context) (capture.Page, error) { return b.page, nil }
func (b *testBrowser) Close() error                                      { return nil }

type apiFixture struct {
	srv  *httptest.Server
	page *testPage
}

func newAPIFixture(t *testing.T, maxSessions int) *apiFixture {
	t.Helper()
	logger := logging.NewLoggerTo(&bytes.Buffer{})
	metrics := capture.NewMetrics()
	page := &testPage{}

	opener := func(ctx context.Context, cfg capture.Config) (capture.Browser, error) {
		return &testBrowser{page: page}, nil
	}
	factory := func(profile capture.Profile) *capture.Engine {
		return capture.NewEngine(opener, profile, capture.DefaultConfig(), logger, metrics)
	}

	registry := session.NewRegistry(factory, session.Config{MaxSessions: maxSessions}, logger, metrics)
	memBus := bus.NewMemoryBus()
	t.Cleanup(func() { _ = memBus.Close() })
	dispatcher := fanout.NewDispatcher(registry, memBus, logger)
	client := nyra.NewClient(nyra.Config{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond}, logger)
	bridge := nyra.NewBridge(client, registry, dispatcher)

	server := NewServer(ServerConfig{
		Orchestrator: orchestrator.New(registry, dispatcher, bridge),
		EventBus:     memBus,
		Metrics:      metrics,
		Logger:       logger,
	})

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, page: page}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (f *apiFixture) createSession(t *testing.T) string {
	t.Helper()
	resp, env := f.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{
		ContentID: "tt42",
		Title:     "Example",
		URL:       "https://example.test/watch",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	data := env.Data.(map[string]any)
	return data["id"].(string)
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t, 1)

	resp, env := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	data := env.Data.(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.EqualValues(t, 0, data["active_sessions"])
	assert.Contains(t, data, "metrics")
}

func TestAPI_SessionLifecycle(t *testing.T) {
	f := newAPIFixture(t, 1)
	id := f.createSession(t)
	assert.True(t, strings.HasPrefix(id, "movie-"))

	resp, env := f.do(t, http.MethodGet, "/api/sessions/"+id+"/data", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := env.Data.(map[string]any)
	assert.Equal(t, true, data["active"])

	resp, env = f.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data = env.Data.(map[string]any)
	assert.Equal(t, false, data["active"])

	// History survives the session's end.
	resp, _ = f.do(t, http.MethodGet, "/api/sessions/"+id+"/data", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Ending twice is a 404.
	resp, env = f.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, movie.CodeSessionNotFound, env.Code)
}

func TestAPI_CreateSessionValidation(t *testing.T) {
	f := newAPIFixture(t, 1)

	resp, env := f.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{ContentID: "tt42"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, movie.CodeInvalidInput, env.Code)
}

func TestAPI_SessionLimitConflict(t *testing.T) {
	f := newAPIFixture(t, 1)
	f.createSession(t)

	resp, env := f.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{
		ContentID: "tt43",
		URL:       "https://example.test/other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, movie.CodeSessionLimit, env.Code)
}

func TestAPI_UnknownSessionIs404(t *testing.T) {
	f := newAPIFixture(t, 1)

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/sessions/movie-missing/playback"},
		{http.MethodPost, "/api/sessions/movie-missing/frames"},
		{http.MethodGet, "/api/sessions/movie-missing/subtitles"},
		{http.MethodGet, "/api/sessions/movie-missing/data"},
		{http.MethodDelete, "/api/sessions/movie-missing"},
	} {
		resp, env := f.do(t, probe.method, probe.path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, probe.path)
		assert.Equal(t, movie.CodeSessionNotFound, env.Code, probe.path)
	}
}

func TestAPI_CaptureFrame(t *testing.T) {
	f := newAPIFixture(t, 1)
	id := f.createSession(t)

	resp, env := f.do(t, http.MethodPost, "/api/sessions/"+id+"/frames", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	data := env.Data.(map[string]any)
	assert.Equal(t, id, data["session_id"])
	assert.NotEmpty(t, data["image_data"])
}

func TestAPI_PlaybackState(t *testing.T) {
	f := newAPIFixture(t, 1)
	id := f.createSession(t)

	resp, env := f.do(t, http.MethodGet, "/api/sessions/"+id+"/playback", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := env.Data.(map[string]any)
	assert.Equal(t, true, data["is_playing"])
	assert.EqualValues(t, 30, data["current_time"])
}

func TestAPI_SubtitlesEmptyIsOK(t *testing.T) {
	f := newAPIFixture(t, 1)
	id := f.createSession(t)

	resp, env := f.do(t, http.MethodGet, "/api/sessions/"+id+"/subtitles", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, env.Data)
}

func TestAPI_Subtitles(t *testing.T) {
	f := newAPIFixture(t, 1)
	f.page.subtitles = []string{"Hallo.", "Welt."}
	id := f.createSession(t)

	resp, env := f.do(t, http.MethodGet, "/api/sessions/"+id+"/subtitles", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	subs := env.Data.([]any)
	require.Len(t, subs, 2)
	first := subs[0].(map[string]any)
	assert.Equal(t, "Hallo.", first["text"])
	assert.NotContains(t, first, "start_time", "unknown timing stays unserialized")
}

func TestAPI_Analyze(t *testing.T) {
	f := newAPIFixture(t, 1)
	id := f.createSession(t)

	resp, env := f.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", AnalyzeRequest{ContentType: movie.ContentSubtitle})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	data := env.Data.(map[string]any)
	assert.Equal(t, string(movie.MemoryQuote), data["kind"])
	assert.EqualValues(t, 0.9, data["confidence"])

	resp, env = f.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", AnalyzeRequest{ContentType: "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, movie.CodeInvalidInput, env.Code)
}

func TestAPI_CORSPreflight(t *testing.T) {
	f := newAPIFixture(t, 1)

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/sessions", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
