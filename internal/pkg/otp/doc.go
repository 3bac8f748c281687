// Package otp generates and validates time-based one-time passwords, and
// issues random numeric codes for SMS or voice delivery.
package otp
