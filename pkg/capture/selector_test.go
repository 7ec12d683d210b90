package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_PicksHighestPriorityMatch(t *testing.T) {
	page := newFakePage()
	page.existing["s2"] = true
	page.existing["s3"] = true

	res, ok := Resolve(context.Background(), page, RoleVideo, []string{"s1", "s2", "s3"})
	require.True(t, ok)
	assert.Equal(t, "s2", res.Selector)
	assert.Equal(t, 1, res.Rank)
}

func TestResolve_NoMatch(t *testing.T) {
	page := newFakePage()

	_, ok := Resolve(context.Background(), page, RoleVideo, []string{"s1", "s2"})
	assert.False(t, ok)
}

func TestResolve_SkipsEmptyCandidates(t *testing.T) {
	page := newFakePage()
	page.existing["s1"] = true

	res, ok := Resolve(context.Background(), page, RoleSubtitle, []string{"", "  ", "s1"})
	require.True(t, ok)
	assert.Equal(t, "s1", res.Selector)
}

func TestDismissCookieConsent_Structural(t *testing.T) {
	page := newFakePage()
	page.existing["#accept-cookies"] = true

	clicked, ok := DismissCookieConsent(context.Background(), page, defaultCookieSelectors)
	require.True(t, ok)
	assert.Equal(t, "#accept-cookies", clicked)
	assert.Empty(t, page.clickedTexts, "text scan must not run when a selector matched")
}

func TestDismissCookieConsent_TextFallback(t *testing.T) {
	page := newFakePage()
	page.buttonTexts = []string{"Einstellungen", "Alle akzeptieren"}

	clicked, ok := DismissCookieConsent(context.Background(), page, defaultCookieSelectors)
	require.True(t, ok)
	assert.Equal(t, "Alle akzeptieren", clicked)
}

func TestDismissCookieConsent_NothingToClick(t *testing.T) {
	page := newFakePage()

	_, ok := DismissCookieConsent(context.Background(), page, defaultCookieSelectors)
	assert.False(t, ok)
}
