// Package webclient is the HTTP side of the acquisition engine.
//
// Every request honors a connect timeout (dial and TLS handshake) and a
// read timeout (time to first response byte and maximum gap between body
// reads), passes through the shared rate limiter and returns the full
// body together with the raw headers. Multipart uploads do not follow
// redirects so the Location header stays visible to the caller.
package webclient
