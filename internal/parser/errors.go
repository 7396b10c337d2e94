package parser

import "errors"

var (
	// ErrInvalidURL is returned when a page URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid page URL")

	// ErrUnsupportedScheme is returned for URLs that are neither http, https nor file.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrUnexpectedStatus is returned when a server answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrUnsupportedContentType is returned for responses that are not HTML or text.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrInvalidProxyURL is returned by NewHTTPClient for a malformed proxy URL.
	ErrInvalidProxyURL = errors.New("invalid proxy URL")
)
