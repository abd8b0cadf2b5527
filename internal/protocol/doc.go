// Package protocol owns the error taxonomy of the VNDB TCP API client.
//
// Ownership boundary:
// - frame: sentinel-terminated command/response codec
// - transport: plain or TLS byte stream to the API host
// - session: login handshake and results fetching
//
// Wire reference: https://vndb.org/d11
package protocol
