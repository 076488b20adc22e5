// Package transport defines the byte-transport interface (spec §4,
// component B) every framed or raw device speaks over, plus (in
// phoenixd.go) the byte-stuffed packet protocol (component D) used to
// reach a host daemon through it.
package transport

// ByteStream is a per-device, unframed byte reader/writer — a raw
// UART, a USB-CDC endpoint, or a flash-mapped window. IsConnected
// lets higher layers detect a dropped USB cable (spec's
// ECONNREFUSED, supplemented from devices/usbc-cdc/{cdc,ctrl}.c in
// original_source/) before or during a blocking wait.
type ByteStream interface {
	Read(buf []byte, timeoutMs uint32) (int, error)
	Write(buf []byte) (int, error)
	IsConnected() bool
}
