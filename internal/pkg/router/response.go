package router

import "net/http"

// Bare is implemented by responses that are written as top-level JSON
// instead of inside the {message,data,meta} envelope.
type Bare interface {
	Bare()
}

// CookieSetter is implemented by responses that set cookies.
type CookieSetter interface {
	Cookies() []*http.Cookie
}

// Created is embedded by responses that should be sent with 201.
type Created struct{}

func (Created) StatusCode() int { return http.StatusCreated }

// NoContent is returned by handlers with nothing to send.
type NoContent struct{}

func (NoContent) StatusCode() int { return http.StatusNoContent }

// Redirect answers with 302 Found and no body. It is meant for browser
// flows such as external sign-in.
type Redirect struct {
	URL        string
	SetCookies []*http.Cookie
}

func (r Redirect) Cookies() []*http.Cookie { return r.SetCookies }
