package services

import (
	"net/http"
	"strings"
)

// Session is the cookie set obtained by a certificate login. Its validity is
// only discovered when the portal redirects a request back to its login page.
type Session struct {
	Cookies []string
}

// Header renders the session as a Cookie header value
func (s Session) Header() string {
	return strings.Join(s.Cookies, "; ")
}

// Empty reports whether the session carries no cookies
func (s Session) Empty() bool {
	return len(s.Cookies) == 0
}

// sessionFromResponse keeps the name=value pair of every Set-Cookie header,
// in the order the portal sent them
func sessionFromResponse(resp *http.Response) Session {
	cookies := resp.Cookies()
	session := Session{Cookies: make([]string, 0, len(cookies))}
	for _, cookie := range cookies {
		session.Cookies = append(session.Cookies, cookie.Name+"="+cookie.Value)
	}
	return session
}
