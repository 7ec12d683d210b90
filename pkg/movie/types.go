// Package movie defines the data model shared by the capture pipeline:
// sessions, captured artifacts, playback state, and memory records.
package movie

import "time"

// Platform identifies a web player profile.
type Platform string

const (
	PlatformNetflix Platform = "netflix"
	PlatformPrime   Platform = "prime"
	PlatformYouTube Platform = "youtube"
	PlatformDisney  Platform = "disney"
	PlatformGeneric Platform = "generic"
)

// Frame is a single captured image from the player. Immutable once created.
type Frame struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Timestamp   int64     `json:"timestamp"`
	ImageData   string    `json:"image_data"` // base64-encoded PNG
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Subtitle is one extracted caption span. StartTime and EndTime are nil
// until a timing-correlation pass exists; nil means "timing unknown", which
// is distinct from a legitimate zero offset.
type Subtitle struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	StartTime   *float64  `json:"start_time,omitempty"`
	EndTime     *float64  `json:"end_time,omitempty"`
	Text        string    `json:"text"`
	Language    string    `json:"language"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// AudioSpan is a captured audio segment. No capture operation produces these
// yet; the type exists so session history and analysis cover all three
// content kinds.
type AudioSpan struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Timestamp   int64     `json:"timestamp"`
	AudioData   string    `json:"audio_data"` // base64-encoded
	SampleRate  int       `json:"sample_rate"`
	Channels    int       `json:"channels"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// PlaybackState is a point-in-time sample of the player's native state.
// It is read fresh on every request and never stored in session history.
type PlaybackState struct {
	SessionID    string    `json:"session_id"`
	IsPlaying    bool      `json:"is_playing"`
	CurrentTime  float64   `json:"current_time"`
	Duration     float64   `json:"duration"`
	Volume       float64   `json:"volume"`
	PlaybackRate float64   `json:"playback_rate"`
	Timestamp    time.Time `json:"timestamp"`
}

// MemoryKind is the closed set of memory record classifications.
type MemoryKind string

const (
	MemoryHighlight MemoryKind = "highlight"
	MemoryQuote     MemoryKind = "quote"
	MemoryScene     MemoryKind = "scene"
	MemoryEmotion   MemoryKind = "emotion"
	MemoryCharacter MemoryKind = "character"
)

// ContentKind discriminates which artifact class an analysis targets.
type ContentKind string

const (
	ContentFrame    ContentKind = "frame"
	ContentSubtitle ContentKind = "subtitle"
	ContentAudio    ContentKind = "audio"
)

// Memory is a record produced by the analysis collaborator for a session.
// Appended to session history once; never mutated afterward.
type Memory struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Kind       MemoryKind     `json:"kind"`
	Content    string         `json:"content"`
	Timestamp  int64          `json:"timestamp"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SessionData holds the append-only artifact histories for one session.
type SessionData struct {
	Frames    []Frame     `json:"frames"`
	Subtitles []Subtitle  `json:"subtitles"`
	Audio     []AudioSpan `json:"audio"`
	Memories  []Memory    `json:"memories"`
}

// Session is one bounded capture episode against one content item and one
// browser page. Owned exclusively by the session registry; callers only ever
// see snapshots.
type Session struct {
	ID        string      `json:"id"`
	ContentID string      `json:"content_id"`
	Title     string      `json:"title,omitempty"`
	URL       string      `json:"url"`
	Platform  Platform    `json:"platform"`
	StartTime time.Time   `json:"start_time"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Active    bool        `json:"active"`
	Data      SessionData `json:"data"`
}

// Clone returns a snapshot safe to hand outside the registry. Artifact
// slices are copied; the artifacts themselves are immutable and shared.
func (s *Session) Clone() Session {
	out := *s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	out.Data = SessionData{
		Frames:    append([]Frame(nil), s.Data.Frames...),
		Subtitles: append([]Subtitle(nil), s.Data.Subtitles...),
		Audio:     append([]AudioSpan(nil), s.Data.Audio...),
		Memories:  append([]Memory(nil), s.Data.Memories...),
	}
	return out
}
