// Package authclient drives the Taskdeck sign-in handshake from the client side.
//
// Client is a small typed HTTP client for the authentication endpoints.
// Verifier is the two-step state machine built on top of it: credentials are
// exchanged for a pending token, a one-time code is submitted against that
// token, and the session's redirect target is handed to a Navigator.
//
// Every HTTP response is read once and interpreted by ReadResponse; error
// text shown to users always comes from ExtractMessage.
package authclient
