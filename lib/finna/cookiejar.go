package finna

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// sessionCookieName is the cookie whose value is the opaque session
// identifier; its presence is the proxy for "logged in".
const sessionCookieName = "PHPSESSID"

type storedCookie struct {
	cookie  *http.Cookie
	expires time.Time // zero means session cookie, never expires client-side
}

// cookieJar is a minimal http.CookieJar that, unlike net/http/cookiejar, can
// be cleared and can report the current session cookie's value. Multiple
// operations may be in flight at once, so every access is mutex-guarded.
type cookieJar struct {
	mu    sync.Mutex
	store []storedCookie
}

func newCookieJar() *cookieJar {
	return &cookieJar{}
}

func (j *cookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		domain := c.Domain
		if domain == "" {
			domain = u.Hostname()
		}
		var expires time.Time
		switch {
		case c.MaxAge > 0:
			expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
		case c.MaxAge < 0:
			expires = time.Unix(0, 0)
		default:
			expires = c.Expires
		}

		stored := *c
		stored.Domain = domain
		if stored.Path == "" {
			stored.Path = "/"
		}

		replaced := false
		for i, existing := range j.store {
			if existing.cookie.Name == stored.Name &&
				existing.cookie.Domain == stored.Domain &&
				existing.cookie.Path == stored.Path {
				j.store[i] = storedCookie{cookie: &stored, expires: expires}
				replaced = true
				break
			}
		}
		if !replaced {
			j.store = append(j.store, storedCookie{cookie: &stored, expires: expires})
		}
	}
}

func (j *cookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	path := u.Path
	if path == "" {
		path = "/"
	}
	kept := j.store[:0]
	var matching []*http.Cookie
	for _, sc := range j.store {
		if !sc.expires.IsZero() && sc.expires.Before(now) {
			continue
		}
		kept = append(kept, sc)
		if matchesDomain(u.Hostname(), sc.cookie.Domain) &&
			strings.HasPrefix(path, sc.cookie.Path) {
			matching = append(matching, &http.Cookie{
				Name:  sc.cookie.Name,
				Value: sc.cookie.Value,
			})
		}
	}
	j.store = kept
	return matching
}

// Session reports the current session identifier, or "" when no session
// cookie is held.
func (j *cookieJar) Session() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, sc := range j.store {
		if sc.cookie.Name == sessionCookieName {
			return sc.cookie.Value
		}
	}
	return ""
}

func (j *cookieJar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.store = nil
}

func matchesDomain(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}
