// Package services defines the error taxonomy and request context shared by
// every rustactions component.
//
// Components tag failures with one of the sentinel markers through Wrap so the
// HTTP front end can map them to status codes without knowing where they came
// from. The context helpers stamp request correlation ids and action names for
// logging.
package services
