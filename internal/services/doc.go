// Package services talks to a running ytmproxy over HTTP.
//
// [APIService] is a thin client: [APIService.Get] returns raw responses for ad-hoc inspection, while the typed
// helpers decode the proxy's JSON envelopes ({"data": ...}, {"url": ...}) and turn {"detail": ...} error bodies
// into errors wrapping [shared.ErrAPIRequest].
//
// [Proxy] is the subset of the client used by background tasks, so they can be tested without a server.
package services
