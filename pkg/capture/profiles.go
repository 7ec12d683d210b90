package capture

import (
	"net/url"
	"strings"

	"github.com/odvcencio/reelview/pkg/movie"
)

// Profile parameterizes the engine for one target platform: the selector
// chains for each role, the post-navigation playback sequence, and the
// nominal frame resolution used when the captured payload cannot be
// decoded. One engine plus a profile replaces per-platform engine
// variants.
type Profile struct {
	Platform movie.Platform

	VideoSelectors    []string
	SubtitleSelectors []string
	PlaySelectors     []string
	CookieSelectors   []string
	// PlayerTargets are containers to click when starting playback.
	PlayerTargets []string

	// AutoPlay runs the playback-start sequence after navigation.
	AutoPlay bool
	// ScrollOffset brings the player into view before clicking.
	ScrollOffset float64
	// FallbackClick is the body coordinate used when no player target
	// resolves.
	FallbackClick struct{ X, Y float64 }

	// NominalWidth/NominalHeight tag frames whose payload dimensions
	// cannot be read.
	NominalWidth  int
	NominalHeight int

	// SubtitleLanguage tags extracted spans; caption nodes carry no
	// language metadata of their own.
	SubtitleLanguage string
}

// defaultCookieSelectors are the structural consent-button candidates
// shared by every profile, ordered from explicit accept markers to generic
// id/class conventions.
var defaultCookieSelectors = []string{
	`button[aria-label*="Alle akzeptieren"]`,
	`button[aria-label*="Accept all"]`,
	`[data-testid*="accept"]`,
	`[data-testid*="allow"]`,
	".cookie-accept",
	".accept-cookies",
	"#accept-cookies",
	"#cookie-accept",
}

func baseProfile(platform movie.Platform) Profile {
	p := Profile{
		Platform:          platform,
		VideoSelectors:    []string{"video"},
		SubtitleSelectors: []string{".subtitle", ".caption"},
		PlaySelectors:     []string{`[aria-label*="Play"]`, "button.play", ".play-button"},
		CookieSelectors:   defaultCookieSelectors,
		PlayerTargets:     []string{"#player", ".player", ".video-player"},
		ScrollOffset:      200,
		NominalWidth:      3840,
		NominalHeight:     2160,
		SubtitleLanguage:  "de",
	}
	p.FallbackClick.X = 640
	p.FallbackClick.Y = 360
	return p
}

// ProfileFor returns the selector profile for a platform.
func ProfileFor(platform movie.Platform) Profile {
	switch platform {
	case movie.PlatformYouTube:
		p := baseProfile(platform)
		p.VideoSelectors = []string{".html5-main-video", "video.video-stream", "video"}
		p.SubtitleSelectors = []string{".ytp-caption-segment", ".captions-text", ".subtitle", ".caption"}
		p.PlaySelectors = []string{".ytp-play-button", `[data-testid="play-button"]`, ".play-button"}
		p.PlayerTargets = []string{"#movie_player", "#player-container", "#player"}
		p.AutoPlay = true
		return p
	case movie.PlatformNetflix:
		p := baseProfile(platform)
		p.VideoSelectors = []string{".watch-video video", "video"}
		p.SubtitleSelectors = []string{".player-timedtext-text-container span", ".player-timedtext", ".subtitle"}
		p.PlaySelectors = []string{`button[data-uia="control-play-pause-play"]`, `[aria-label*="Play"]`}
		p.PlayerTargets = []string{".watch-video", ".nf-player-container"}
		p.AutoPlay = true
		return p
	case movie.PlatformPrime:
		p := baseProfile(platform)
		p.VideoSelectors = []string{".webPlayerElement video", ".rendererContainer video", "video"}
		p.SubtitleSelectors = []string{".atvwebplayersdk-captions-text", ".captions", ".subtitle"}
		p.PlaySelectors = []string{".atvwebplayersdk-playpause-button", `[aria-label*="Play"]`}
		p.PlayerTargets = []string{"#dv-web-player", ".webPlayerSDKContainer"}
		p.AutoPlay = true
		return p
	case movie.PlatformDisney:
		p := baseProfile(platform)
		p.VideoSelectors = []string{".btm-media-client-element", "video"}
		p.SubtitleSelectors = []string{".dss-subtitle-renderer-line", ".subtitle", ".caption"}
		p.PlaySelectors = []string{`button[aria-label="Play"]`, ".control-icon-btn"}
		p.PlayerTargets = []string{".btm-media-overlays-container", "#hudson-wrapper"}
		p.AutoPlay = true
		return p
	default:
		return baseProfile(movie.PlatformGeneric)
	}
}

// DetectPlatform derives the platform profile from a target URL's host.
// Unknown hosts get the generic profile.
func DetectPlatform(rawURL string) movie.Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return movie.PlatformGeneric
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case strings.Contains(host, "youtube.") || strings.Contains(host, "youtu.be"):
		return movie.PlatformYouTube
	case strings.Contains(host, "netflix."):
		return movie.PlatformNetflix
	case strings.Contains(host, "primevideo.") || strings.Contains(host, "amazon."):
		return movie.PlatformPrime
	case strings.Contains(host, "disneyplus.") || strings.Contains(host, "disney."):
		return movie.PlatformDisney
	default:
		return movie.PlatformGeneric
	}
}
