// Package mcptools exposes the capture pipeline as MCP tools over stdio,
// so an MCP-speaking assistant can drive sessions directly. Tool failures
// are reported as tool results, never as transport errors.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/movie"
	"github.com/odvcencio/reelview/pkg/orchestrator"
)

// Server wraps the MCP server and its tool handlers.
type Server struct {
	mcp    *server.MCPServer
	orch   *orchestrator.Orchestrator
	logger *logging.Logger
}

// NewServer builds the MCP server with all movie tools registered.
func NewServer(orch *orchestrator.Orchestrator, logger *logging.Logger) *Server {
	s := &Server{
		mcp:    server.NewMCPServer("reelview", "1.0.0"),
		orch:   orch,
		logger: logger,
	}

	s.mcp.AddTool(mcp.NewTool("start_movie_session",
		mcp.WithDescription("Starts a viewing session: opens a browser on the streaming URL, handles consent overlays, and begins playback where the platform allows it."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Stable identifier of the movie or episode")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Streaming URL to open")),
		mcp.WithString("title", mcp.Description("Human-readable title")),
	), s.handleStartSession)

	s.mcp.AddTool(mcp.NewTool("stop_movie_session",
		mcp.WithDescription("Ends a viewing session, closes its browser, and reports the captured totals."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to end")),
	), s.handleStopSession)

	s.mcp.AddTool(mcp.NewTool("get_playback_state",
		mcp.WithDescription("Reads the player's current state: playing/paused, position, duration, volume, rate."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to inspect")),
	), s.handlePlaybackState)

	s.mcp.AddTool(mcp.NewTool("capture_frame",
		mcp.WithDescription("Captures one frame from the video element and records it in the session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to capture from")),
	), s.handleCaptureFrame)

	s.mcp.AddTool(mcp.NewTool("get_subtitles",
		mcp.WithDescription("Extracts the currently visible subtitles and records them in the session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to extract from")),
	), s.handleGetSubtitles)

	s.mcp.AddTool(mcp.NewTool("analyze_content",
		mcp.WithDescription("Runs Nyra analysis on captured content and records the resulting memory."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to analyze")),
		mcp.WithString("content_type", mcp.Required(), mcp.Description("What to analyze: frame, subtitle, or audio")),
	), s.handleAnalyze)

	return s
}

// ServeStdio runs the MCP server on stdin/stdout. Blocks until the
// transport closes.
func (s *Server) ServeStdio() error {
	s.logger.Info(logging.CategoryMCP, "mcp_started", "", "serving MCP tools on stdio", nil)
	return server.ServeStdio(s.mcp)
}

// MCPServer exposes the underlying server. Used by tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func stringArg(request mcp.CallToolRequest, key string) string {
	args, _ := request.Params.Arguments.(map[string]any)
	val, _ := args[key].(string)
	return strings.TrimSpace(val)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentID := stringArg(request, "content_id")
	url := stringArg(request, "url")
	if contentID == "" {
		return mcp.NewToolResultError("content_id is required"), nil
	}
	if url == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	sess, err := s.orch.StartSession(ctx, contentID, stringArg(request, "title"), url)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Session %s started on %s (%s). Capture tools are ready.",
		sess.ID, sess.Platform, sess.URL,
	)), nil
}

func (s *Server) handleStopSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request, "session_id")
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	sess, err := s.orch.StopSession(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Session %s ended. Captured %d frames, %d subtitles, %d memories.",
		sess.ID, len(sess.Data.Frames), len(sess.Data.Subtitles), len(sess.Data.Memories),
	)), nil
}

func (s *Server) handlePlaybackState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request, "session_id")
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	state, err := s.orch.PlaybackState(ctx, id)
	if err != nil {
		return toolError(err), nil
	}

	status := "paused"
	if state.IsPlaying {
		status = "playing"
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Playback is %s at %.1fs of %.1fs (volume %.2f, rate %.2fx).",
		status, state.CurrentTime, state.Duration, state.Volume, state.PlaybackRate,
	)), nil
}

func (s *Server) handleCaptureFrame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request, "session_id")
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	frame, err := s.orch.CaptureFrame(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Captured frame %s (%dx%d) for session %s.",
		frame.ID, frame.Width, frame.Height, id,
	)), nil
}

func (s *Server) handleGetSubtitles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request, "session_id")
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	subs, err := s.orch.CaptureSubtitles(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if len(subs) == 0 {
		return mcp.NewToolResultText("No subtitles are currently visible."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Captured %d subtitle(s):\n", len(subs))
	for _, sub := range subs {
		fmt.Fprintf(&b, "- %s\n", sub.Text)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request, "session_id")
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	kind := movie.ContentKind(stringArg(request, "content_type"))

	mem, err := s.orch.Analyze(ctx, id, kind)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Analysis complete: %s memory %s (confidence %.2f): %s",
		mem.Kind, mem.ID, mem.Confidence, mem.Content,
	)), nil
}

// toolError renders a failure as a tool result. Coded errors already
// carry their code in the message.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
