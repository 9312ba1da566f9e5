package models

import "errors"

var (
	// ErrUnexpectedStatus is returned when a page responds with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrUnsupportedContentType is returned when a page is not HTML.
	ErrUnsupportedContentType = errors.New("unsupported content type")
	// ErrNoStores is returned when the configuration lists no stores.
	ErrNoStores = errors.New("no stores configured")
)
