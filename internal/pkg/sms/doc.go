// Package sms defines the contract for delivering short text messages and
// voice calls to phone numbers.
//
// Use cases depend on Sender. Twilio is the production implementation and
// Log writes deliveries to the structured log for local development.
package sms
