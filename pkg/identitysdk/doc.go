// Package identitysdk holds the wire types of the identity service HTTP
// API. Both the service's own handlers and Go consumers of the API use
// these types, so the JSON contract lives in exactly one place.
package identitysdk
