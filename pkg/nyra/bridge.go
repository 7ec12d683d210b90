package nyra

import (
	"context"

	"github.com/odvcencio/reelview/pkg/movie"
)

// SessionReader is the slice of the session registry the bridge reads.
type SessionReader interface {
	Snapshot(id string) (movie.Session, error)
}

// MemorySink receives memories for recording and fan-out.
type MemorySink interface {
	Memory(ctx context.Context, sessionID string, mem movie.Memory) error
}

// Bridge connects analysis to the session pipeline: it picks the artifact
// to analyze from session history, runs the client, and routes the memory
// through the sink so history and observers stay consistent.
type Bridge struct {
	client   *Client
	sessions SessionReader
	sink     MemorySink
}

// NewBridge wires a bridge.
func NewBridge(client *Client, sessions SessionReader, sink MemorySink) *Bridge {
	return &Bridge{client: client, sessions: sessions, sink: sink}
}

// Analyze runs content analysis for a session. When the session history
// holds an artifact of the requested kind, the most recent one is
// analyzed; otherwise the kind is analyzed without a specific artifact.
// The resulting memory is recorded and announced before it is returned.
func (b *Bridge) Analyze(ctx context.Context, sessionID string, kind movie.ContentKind) (movie.Memory, error) {
	sess, err := b.sessions.Snapshot(sessionID)
	if err != nil {
		return movie.Memory{}, err
	}
	// Ended sessions refuse appends; check before the client runs so no
	// memory is synced to Nyra that the local history will not hold.
	if !sess.Active {
		return movie.Memory{}, movie.ErrSessionNotFound
	}

	var mem movie.Memory
	switch {
	case kind == movie.ContentFrame && len(sess.Data.Frames) > 0:
		mem = b.client.AnalyzeFrame(ctx, sess.Data.Frames[len(sess.Data.Frames)-1])
	case kind == movie.ContentSubtitle && len(sess.Data.Subtitles) > 0:
		mem = b.client.AnalyzeSubtitle(ctx, sess.Data.Subtitles[len(sess.Data.Subtitles)-1])
	default:
		mem = b.client.AnalyzeContent(ctx, sessionID, kind)
	}

	if err := b.sink.Memory(ctx, sessionID, mem); err != nil {
		// A session ended between the snapshot and the append keeps its
		// not-found identity instead of reading as an analysis failure.
		if movie.IsCode(err, movie.CodeSessionNotFound) {
			return movie.Memory{}, err
		}
		return movie.Memory{}, movie.WrapError(err, movie.CodeAnalysisFailed, "recording memory failed")
	}
	return mem, nil
}

// StartConversation primes Nyra's conversation mode with everything known
// about the session: locally recorded memories merged with whatever Nyra
// already holds for the content item.
func (b *Bridge) StartConversation(ctx context.Context, sessionID string) (int, error) {
	sess, err := b.sessions.Snapshot(sessionID)
	if err != nil {
		return 0, err
	}

	contentID := sess.ContentID
	if contentID == "" {
		contentID = sess.ID
	}

	memories := append([]movie.Memory(nil), sess.Data.Memories...)
	if remote, err := b.client.MemoriesForContent(ctx, contentID); err == nil {
		known := make(map[string]bool, len(memories))
		for _, m := range memories {
			known[m.ID] = true
		}
		for _, m := range remote {
			if !known[m.ID] {
				memories = append(memories, m)
			}
		}
	}

	if err := b.client.StartConversation(ctx, contentID, memories); err != nil {
		return 0, movie.WrapError(err, movie.CodeAnalysisFailed, "starting conversation mode failed")
	}
	return len(memories), nil
}
