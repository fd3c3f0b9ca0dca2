// Package validator validates request and dependency structs.
//
// Callers depend on the Validator interface. The v10 implementation reports
// field errors keyed by the JSON name the client sent, so they can be
// returned in the "fields" member of an error body.
package validator
