package finna

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCookieJar(t *testing.T) {
	jar := newCookieJar()
	portal, err := url.Parse("https://finna.fi/MyResearch/Home")
	require.NoError(t, err)

	jar.SetCookies(portal, []*http.Cookie{
		{Name: sessionCookieName, Value: "sess-1"},
		{Name: "language", Value: "en-gb", Path: "/"},
	})
	require.Equal(t, "sess-1", jar.Session())

	cookies := jar.Cookies(portal)
	require.Len(t, cookies, 2)

	// a later Set-Cookie for the same name replaces, not duplicates
	jar.SetCookies(portal, []*http.Cookie{{Name: sessionCookieName, Value: "sess-2"}})
	require.Equal(t, "sess-2", jar.Session())
	require.Len(t, jar.Cookies(portal), 2)

	// a bare origin URL (empty path) still matches "/" cookies
	origin, err := url.Parse("https://finna.fi")
	require.NoError(t, err)
	require.Len(t, jar.Cookies(origin), 2)

	// other hosts see nothing
	other, err := url.Parse("https://example.com/")
	require.NoError(t, err)
	require.Empty(t, jar.Cookies(other))

	// MaxAge < 0 deletes
	jar.SetCookies(portal, []*http.Cookie{{Name: sessionCookieName, MaxAge: -1}})
	require.Empty(t, jar.Session())

	jar.SetCookies(portal, []*http.Cookie{{Name: "language", Value: "fi"}})
	jar.Clear()
	require.Empty(t, jar.Cookies(portal))
}
