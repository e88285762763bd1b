// Package geocode turns cluster centers into human-readable place names
// using a Nominatim-compatible reverse geocoding service.
//
// Lookups are strictly sequential across the process and paced by an
// injected Limiter, so the service's rate policy holds no matter how many
// callers there are. Resolve never fails: any error yields the
// "lat, lng" coordinate string instead. Cached wraps a Client with a
// persistent store so re-runs over the same places skip the network.
package geocode
