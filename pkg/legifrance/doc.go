// Package legifrance is a client for the Legifrance API published on the
// PISTE platform.
//
// The client obtains an OAuth2 access token with the client-credentials
// grant, refreshes it shortly before it expires, and retries connectivity
// failures, 429 and 5xx responses with exponential backoff. Every failure is
// reported as an AuthenticationError, a DataParsingError or a LegifranceError,
// all of which embed APIError.
package legifrance
