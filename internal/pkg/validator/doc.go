// Package validator checks usecase inputs against struct tags.
//
// Usecases hold the Validator interface; V10 backs it with
// go-playground/validator and reports failures keyed by the json field name,
// which the router copies into the error body.
package validator
