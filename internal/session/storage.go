package session

import (
	"net/http"
	"sync"
)

// CookieStorage maps session storage onto cookies with no expiry, which the
// browser drops when the browsing session ends.
type CookieStorage struct {
	w   http.ResponseWriter
	r   *http.Request
	set map[string]string
}

// NewCookieStorage wraps a request/response pair.
func NewCookieStorage(w http.ResponseWriter, r *http.Request) *CookieStorage {
	return &CookieStorage{w: w, r: r, set: map[string]string{}}
}

// Get reads key from values set during this request, then from the request cookies.
func (c *CookieStorage) Get(key string) (string, bool, error) {
	if v, ok := c.set[key]; ok {
		return v, true, nil
	}
	if c.r == nil {
		return "", false, ErrStorageUnavailable
	}
	cookie, err := c.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	return cookie.Value, true, nil
}

// Set writes a session cookie readable by page scripts.
func (c *CookieStorage) Set(key, value string) error {
	if c.w == nil {
		return ErrStorageUnavailable
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	c.set[key] = value
	return nil
}

// MemoryStorage is an in-process Storage, handy for tests and previews.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

// Get implements Storage.
func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
