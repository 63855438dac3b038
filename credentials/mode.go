// Package credentials controls whether cookies travel with a JSON-RPC call.
//
// The modes follow the fetch API: Omit never sends or stores cookies,
// SameOrigin only does so for requests to the configured origin, and
// Include always does. The zero Mode behaves as Omit.
package credentials

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
)

type Mode string

const (
	Omit       Mode = "omit"
	SameOrigin Mode = "same-origin"
	Include    Mode = "include"
)

// ParseMode accepts "omit", "same-origin" and "include" in any case. An
// empty string yields Omit.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Omit:
		return Omit, nil
	case SameOrigin:
		return SameOrigin, nil
	case Include:
		return Include, nil
	}
	return "", fmt.Errorf("credentials: unknown mode %q", s)
}

// OrDefault maps the zero Mode to Omit.
func (m Mode) OrDefault() Mode {
	if m == "" {
		return Omit
	}
	return m
}

// Filter returns the jar a request made under mode may use, or nil when no
// cookies should be sent or stored. For SameOrigin the returned jar ignores
// every URL whose scheme and host differ from origin; with a nil origin
// nothing is same-origin.
func Filter(jar http.CookieJar, mode Mode, origin *url.URL) http.CookieJar {
	if jar == nil {
		return nil
	}
	switch mode.OrDefault() {
	case Include:
		return jar
	case SameOrigin:
		if origin == nil {
			return nil
		}
		return &sameOriginJar{jar: jar, origin: origin}
	}
	return nil
}

type sameOriginJar struct {
	jar    http.CookieJar
	origin *url.URL
}

func (s *sameOriginJar) allowed(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, s.origin.Scheme) && strings.EqualFold(u.Host, s.origin.Host)
}

func (s *sameOriginJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if s.allowed(u) {
		s.jar.SetCookies(u, cookies)
	}
}

func (s *sameOriginJar) Cookies(u *url.URL) []*http.Cookie {
	if !s.allowed(u) {
		return nil
	}
	return s.jar.Cookies(u)
}

// Jar is an in-memory cookie jar that remembers which URLs set cookies, so
// its contents can be listed and persisted with a Store.
type Jar struct {
	jar *cookiejar.Jar

	mu   sync.Mutex
	seen map[string]*url.URL
}

func NewJar() *Jar {
	// cookiejar.New only fails on a bad PublicSuffixList, and nil is valid.
	jar, _ := cookiejar.New(nil)
	return &Jar{
		jar:  jar,
		seen: make(map[string]*url.URL),
	}
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	key := u.Scheme + "://" + u.Host + u.Path
	j.mu.Lock()
	if _, ok := j.seen[key]; !ok {
		j.seen[key] = &url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	}
	j.mu.Unlock()
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Entry is one stored cookie.
type Entry struct {
	URL   string `cbor:"1,keyasint"`
	Name  string `cbor:"2,keyasint"`
	Value string `cbor:"3,keyasint"`
}

// Entries lists the cookies the jar would currently send to each URL that
// has set cookies. Attributes other than name and value are not exposed by
// net/http/cookiejar and are therefore not listed.
func (j *Jar) Entries() []Entry {
	j.mu.Lock()
	urls := make([]*url.URL, 0, len(j.seen))
	for _, u := range j.seen {
		urls = append(urls, u)
	}
	j.mu.Unlock()

	var entries []Entry
	dedup := make(map[Entry]bool)
	for _, u := range urls {
		for _, c := range j.jar.Cookies(u) {
			e := Entry{URL: u.String(), Name: c.Name, Value: c.Value}
			if !dedup[e] {
				dedup[e] = true
				entries = append(entries, e)
			}
		}
	}
	return entries
}

// Restore sets every entry into the jar. Entries with unparseable URLs are
// skipped.
func (j *Jar) Restore(entries []Entry) {
	for _, e := range entries {
		u, err := url.Parse(e.URL)
		if err != nil || u.Host == "" {
			continue
		}
		j.SetCookies(u, []*http.Cookie{{Name: e.Name, Value: e.Value}})
	}
}
