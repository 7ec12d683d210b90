package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odvcencio/reelview/pkg/movie"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want movie.Platform
	}{
		{"https://www.youtube.com/watch?v=abc123", movie.PlatformYouTube},
		{"https://youtu.be/abc123", movie.PlatformYouTube},
		{"https://www.netflix.com/watch/81234567", movie.PlatformNetflix},
		{"https://www.primevideo.com/detail/xyz", movie.PlatformPrime},
		{"https://www.amazon.de/gp/video/detail/xyz", movie.PlatformPrime},
		{"https://www.disneyplus.com/video/xyz", movie.PlatformDisney},
		{"https://media.example.org/stream/42", movie.PlatformGeneric},
		{"not a url at all ://", movie.PlatformGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url))
		})
	}
}

func TestProfileFor_PlatformChains(t *testing.T) {
	yt := ProfileFor(movie.PlatformYouTube)
	assert.Equal(t, ".html5-main-video", yt.VideoSelectors[0])
	assert.Contains(t, yt.SubtitleSelectors, ".ytp-caption-segment")
	assert.True(t, yt.AutoPlay)

	nf := ProfileFor(movie.PlatformNetflix)
	assert.Contains(t, nf.SubtitleSelectors, ".player-timedtext-text-container span")

	generic := ProfileFor(movie.PlatformGeneric)
	assert.False(t, generic.AutoPlay)
	assert.Equal(t, []string{"video"}, generic.VideoSelectors)
}

func TestProfileFor_EveryChainEndsGeneric(t *testing.T) {
	platforms := []movie.Platform{
		movie.PlatformYouTube, movie.PlatformNetflix, movie.PlatformPrime,
		movie.PlatformDisney, movie.PlatformGeneric,
	}
	for _, platform := range platforms {
		p := ProfileFor(platform)
		assert.Equal(t, "video", p.VideoSelectors[len(p.VideoSelectors)-1], string(platform))
		assert.NotEmpty(t, p.CookieSelectors, string(platform))
		assert.Equal(t, 3840, p.NominalWidth, string(platform))
		assert.Equal(t, 2160, p.NominalHeight, string(platform))
	}
}
