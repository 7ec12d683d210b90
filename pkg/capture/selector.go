package capture

import (
	"context"
	"strings"
)

// Role names the semantic element a selector chain locates. The resolver
// is agnostic to why a chain is ordered; by convention platform-specific
// selectors come first and generic tag names last.
type Role string

const (
	RoleVideo        Role = "video"
	RoleSubtitle     Role = "subtitle"
	RolePlayControl  Role = "play_control"
	RoleCookieAccept Role = "cookie_accept"
	RolePlayerTarget Role = "player_target"
)

// Resolution is a successful selector match.
type Resolution struct {
	Role     Role
	Selector string
	// Rank is the index of the matched candidate within its chain.
	Rank int
}

// acceptPhrases is the multilingual consent-button vocabulary used by the
// text-based cookie fallback. Matching is case-insensitive substring.
var acceptPhrases = []string{
	"alle akzeptieren",
	"accept all",
	"alle zulassen",
	"allow all",
	"akzeptieren",
	"accept",
	"tout accepter",
	"aceptar todo",
}

// Resolve tries each candidate in priority order against the live page and
// returns the first that matches. Probe failures on individual candidates
// (malformed selector, transient DOM exception) count as non-matches.
// The second return is false when no candidate matched.
func Resolve(ctx context.Context, page Page, role Role, candidates []string) (Resolution, bool) {
	for rank, selector := range candidates {
		if strings.TrimSpace(selector) == "" {
			continue
		}
		ok, err := page.Exists(ctx, selector)
		if err != nil {
			continue
		}
		if ok {
			return Resolution{Role: role, Selector: selector, Rank: rank}, true
		}
	}
	return Resolution{}, false
}

// DismissCookieConsent locates and clicks a cookie-consent accept control.
// Structural candidates are tried first via Resolve; if none match, the
// page's interactive controls are scanned by text against the acceptance
// vocabulary. Returns what was clicked and whether anything was.
func DismissCookieConsent(ctx context.Context, page Page, candidates []string) (string, bool) {
	if res, ok := Resolve(ctx, page, RoleCookieAccept, candidates); ok {
		if err := page.Click(ctx, res.Selector); err == nil {
			return res.Selector, true
		}
	}

	matched, err := page.ClickByText(ctx, acceptPhrases)
	if err != nil {
		return "", false
	}
	return matched, true
}
