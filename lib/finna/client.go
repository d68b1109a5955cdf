// Package finna is a session-authenticated client for the Finna library
// catalogue portal. Most patron operations (loans, holds, fines, profile)
// have no formal API, so the client behaves like a logged-in browser
// session: it authenticates through the login form, keeps the session
// alive, transparently recovers from session expiry and translates the
// portal's HTML pages and loosely typed JSON payloads into typed records.
package finna

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"

	"openfinna-go/lib/telemetry"
)

var tracer = otel.Tracer("finna/client")

const (
	DefaultBaseUrl    = "https://finna.fi"
	DefaultAPIBaseUrl = "https://api.finna.fi"
	DefaultLanguage   = "en-gb"

	requestTimeout       = 10 * time.Second
	buildingListCacheKey = "buildings"
	buildingListLifetime = 12 * time.Hour
)

// AuthChange is delivered to the registered listener after a successful
// login and after the default building has been resolved.
type AuthChange struct {
	Credentials Credentials
	User        *User
	Building    *Building
}

type Options struct {
	// portal base url, DefaultBaseUrl when empty
	BaseUrl string
	// record/search API base url, DefaultAPIBaseUrl when empty
	APIBaseUrl string
	// value of the portal language cookie, DefaultLanguage when empty
	Language string
	// initial credentials; a non-empty Session resumes a stored session
	// without a fresh login
	Credentials Credentials
	// optional; called with the new session token (and resolved building)
	// after authentication state changes
	OnAuthChange func(AuthChange)
}

// Client issues authenticated portal requests. All methods are safe for
// concurrent use; the cookie jar and the cached default building are the
// only shared mutable state.
type Client struct {
	baseUrl    *url.URL
	apiBaseUrl *url.URL
	language   string

	jar *cookieJar
	// the session×redirect matrix: the portal needs all four combinations
	// (e.g. hold placement must see the raw 302, the record API must not
	// carry session cookies)
	session       *resty.Client
	sessionNoRed  *resty.Client
	anon          *resty.Client
	anonNoRed     *resty.Client
	onAuthChange  func(AuthChange)
	responseCache *gocache.Cache

	mu             sync.Mutex
	creds          Credentials
	cachedBuilding *Building
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.APIBaseUrl == "" {
		opts.APIBaseUrl = DefaultAPIBaseUrl
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	apiBaseUrl, err := url.Parse(opts.APIBaseUrl)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseUrl:       baseUrl,
		apiBaseUrl:    apiBaseUrl,
		language:      opts.Language,
		jar:           newCookieJar(),
		onAuthChange:  opts.OnAuthChange,
		responseCache: gocache.New(buildingListLifetime, time.Hour),
		creds:         opts.Credentials,
	}

	c.session = c.newHTTPClient(true, true)
	c.sessionNoRed = c.newHTTPClient(true, false)
	c.anon = c.newHTTPClient(false, true)
	c.anonNoRed = c.newHTTPClient(false, false)

	c.resetJar(opts.Credentials.Session)
	return c, nil
}

func (c *Client) newHTTPClient(session, redirect bool) *resty.Client {
	client := resty.New()
	client.SetTimeout(requestTimeout)
	client.SetHeader("Referer", c.origin()+"/")
	client.SetHeader("Origin", c.origin()+"/")
	client.SetHeader("User-Agent", "Mozilla/5.0")

	if session {
		client.SetCookieJar(c.jar)
		// session-bound pages must never be served from a cache
		client.SetHeader("Cache-Control", "no-cache")
	}
	if redirect {
		client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	} else {
		client.SetRedirectPolicy(resty.NoRedirectPolicy())
	}

	telemetry.InstrumentResty(client, "finna/http")
	return client
}

func (c *Client) origin() string {
	return c.baseUrl.Scheme + "://" + c.baseUrl.Host
}

// Origin reports the portal origin cover image urls are resolved against.
func (c *Client) Origin() string {
	return c.origin()
}

func (c *Client) url(path string) string {
	return c.origin() + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) apiURL(path string) string {
	return c.apiBaseUrl.Scheme + "://" + c.apiBaseUrl.Host + "/" + strings.TrimPrefix(path, "/")
}

// resetJar empties the cookie store and re-seeds the language cookie, plus
// the session cookie when a stored session is being resumed.
func (c *Client) resetJar(session string) {
	c.jar.Clear()
	c.jar.SetCookies(c.baseUrl, []*http.Cookie{{
		Name:   "language",
		Value:  c.language,
		Domain: c.baseUrl.Hostname(),
		Path:   "/",
	}})
	if session != "" {
		c.jar.SetCookies(c.baseUrl, []*http.Cookie{{
			Name:   sessionCookieName,
			Value:  session,
			Domain: c.baseUrl.Hostname(),
			Path:   "/",
		}})
	}
}

// Session reports the current session token, or "" when not logged in.
func (c *Client) Session() string {
	return c.jar.Session()
}

func (c *Client) credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

// Credentials reports the stored credentials.
func (c *Client) Credentials() Credentials {
	return c.credentials()
}

// SetCredentials replaces the stored credentials. Any cached derived state
// (session cookies, default building) is invalidated; the next operation
// will log in from scratch.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.cachedBuilding = nil
	c.mu.Unlock()
	c.resetJar(creds.Session)
}

// CachedBuilding reports the resolved default building, if any.
func (c *Client) CachedBuilding() *Building {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedBuilding
}

// SetCachedBuilding pre-seeds the default building, e.g. from a previous
// run. Resolution is re-derivable at any time, so this is purely an
// optimization.
func (c *Client) SetCachedBuilding(b *Building) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedBuilding = b
}

func (c *Client) notifyAuthChange(user *User, building *Building) {
	if c.onAuthChange == nil {
		return
	}
	creds := c.credentials()
	creds.Session = c.jar.Session()
	c.onAuthChange(AuthChange{Credentials: creds, User: user, Building: building})
}

func (c *Client) httpClient(session, redirect bool) *resty.Client {
	switch {
	case session && redirect:
		return c.session
	case session:
		return c.sessionNoRed
	case redirect:
		return c.anon
	default:
		return c.anonNoRed
	}
}

func (c *Client) get(ctx context.Context, session, redirect bool, url string) (*resty.Response, error) {
	return c.httpClient(session, redirect).R().
		SetContext(ctx).
		Get(url)
}

func (c *Client) post(ctx context.Context, session, redirect bool, url string, form url.Values) (*resty.Response, error) {
	return c.httpClient(session, redirect).R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(url)
}

// expectOK maps a non-200 response to a StatusError.
func expectOK(res *resty.Response) error {
	if res.StatusCode() != http.StatusOK {
		return &StatusError{Code: res.StatusCode()}
	}
	return nil
}
