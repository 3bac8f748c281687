// Package hash covers the one-way hashes: bcrypt for passwords, argon2id for
// pending verification codes and a keyed HMAC for pending tokens.
package hash
