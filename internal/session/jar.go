package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sibeo/internal/common"
)

// storedCookie is the persisted form of a backend cookie
type storedCookie struct {
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Path     string     `json:"path,omitempty"`
	Expires  *time.Time `json:"expires,omitempty"`
	Secure   bool       `json:"secure,omitempty"`
	HttpOnly bool       `json:"http_only,omitempty"`
}

// expired reports whether the cookie has a deadline at or before now.
// Cookies without one last until they are replaced or cleared.
func (sc storedCookie) expired(now time.Time) bool {
	return sc.Expires != nil && !sc.Expires.After(now)
}

func (sc storedCookie) path() string {
	if sc.Path == "" {
		return "/"
	}
	return sc.Path
}

// PersistentJar is a cookie jar for the API origin whose contents survive
// process restarts through the session store.
type PersistentJar struct {
	mu     sync.Mutex
	jar    *cookiejar.Jar
	origin *url.URL
	// attrs remembers what the jar does not report back: path, expiry, flags
	attrs  map[string]storedCookie
	store  *Store
	logger *zap.Logger
	now    func() time.Time
}

// NewPersistentJar creates a jar for origin and loads previously saved cookies
func NewPersistentJar(ctx context.Context, origin string, store *Store, logger *zap.Logger) (*PersistentJar, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	pj := &PersistentJar{
		jar:    jar,
		origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		attrs:  make(map[string]storedCookie),
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	pj.load(ctx)
	return pj, nil
}

// SetCookies implements http.CookieJar and persists cookies for the origin
func (pj *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	pj.jar.SetCookies(u, cookies)
	if u.Host != pj.origin.Host {
		return
	}

	now := pj.now()
	for _, c := range cookies {
		sc := storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     cookiePath(u, c),
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		switch {
		case c.MaxAge < 0:
			delete(pj.attrs, c.Name)
			continue
		case c.MaxAge > 0:
			exp := now.Add(time.Duration(c.MaxAge) * time.Second).UTC()
			sc.Expires = &exp
		case !c.Expires.IsZero():
			exp := c.Expires.UTC()
			sc.Expires = &exp
		}
		if sc.expired(now) {
			delete(pj.attrs, c.Name)
			continue
		}
		pj.attrs[c.Name] = sc
	}
	pj.save()
}

// Cookies implements http.CookieJar
func (pj *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	pj.mu.Lock()
	defer pj.mu.Unlock()
	return pj.jar.Cookies(u)
}

// Clear drops every cookie in memory and in the store
func (pj *PersistentJar) Clear(ctx context.Context) error {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	pj.jar = jar
	pj.attrs = make(map[string]storedCookie)
	return pj.store.Remove(ctx, common.CookiesKey)
}

func (pj *PersistentJar) load(ctx context.Context) {
	data, ok, err := pj.store.Get(ctx, common.CookiesKey)
	if err != nil {
		pj.logger.Warn("Could not read saved cookies", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var saved []storedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		pj.logger.Warn("Discarding unreadable saved cookies", zap.Error(err))
		_ = pj.store.Remove(ctx, common.CookiesKey)
		return
	}

	now := pj.now()
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		if sc.expired(now) {
			pj.logger.Debug("Dropping expired cookie", zap.String("name", sc.Name))
			continue
		}
		c := &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.path(),
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		}
		if sc.Expires != nil {
			c.Expires = *sc.Expires
		}
		cookies = append(cookies, c)
		pj.attrs[sc.Name] = sc
	}
	pj.jar.SetCookies(pj.origin, cookies)
}

// save must be called with mu held
func (pj *PersistentJar) save() {
	now := pj.now()
	saved := make([]storedCookie, 0, len(pj.attrs))
	for name, sc := range pj.attrs {
		value, live := pj.liveValue(sc)
		if !live || sc.expired(now) {
			delete(pj.attrs, name)
			continue
		}
		sc.Value = value
		saved = append(saved, sc)
	}
	sort.Slice(saved, func(i, j int) bool { return saved[i].Name < saved[j].Name })

	data, err := json.Marshal(saved)
	if err != nil {
		pj.logger.Warn("Could not encode cookies", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), common.DefaultTimeout)
	defer cancel()
	if err := pj.store.Set(ctx, common.CookiesKey, data); err != nil {
		pj.logger.Warn("Could not persist cookies", zap.Error(err))
	}
}

// liveValue looks the cookie up in the jar under its own path
func (pj *PersistentJar) liveValue(sc storedCookie) (string, bool) {
	u := *pj.origin
	u.Path = sc.path()
	if sc.Secure {
		u.Scheme = "https"
	}
	for _, c := range pj.jar.Cookies(&u) {
		if c.Name == sc.Name {
			return c.Value, true
		}
	}
	return "", false
}

// cookiePath is the path the jar files c under when set from u
func cookiePath(u *url.URL, c *http.Cookie) string {
	if strings.HasPrefix(c.Path, "/") {
		return c.Path
	}
	dir := u.Path
	if i := strings.LastIndex(dir, "/"); i > 0 {
		return dir[:i]
	}
	return "/"
}
