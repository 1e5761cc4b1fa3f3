// Package protocol implements the Atmosphere Protocol framing layer: the
// in-band handshake carried by the first inbound message, and the
// padding/heartbeat and message-length-tracking decoders it installs
// (spec §4.1, §4.2, §6).
package protocol

// QuerySetter is the minimal surface the handshake decoders need to write
// the server-assigned tracking UUID back into the owning request's query
// parameters. request.Values satisfies this without protocol importing
// the request package, avoiding an import cycle
// (request.AtmosphereBuilder.Build constructs these decoders).
type QuerySetter interface {
	Set(key, value string)
}

// DefaultHeartbeatChar is used when the handshake does not carry an
// explicit heartbeat character field (spec §4.2).
const DefaultHeartbeatChar = 'X'

// TrackingIDQueryParam is the query parameter the handshake UUID is
// written into (spec §6).
const TrackingIDQueryParam = "X-Atmosphere-tracking-id"
