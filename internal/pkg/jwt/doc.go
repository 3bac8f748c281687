// Package jwt signs and verifies the HS512 session tokens carried in the
// session cookie, and stores verified claims in a request context.
package jwt
