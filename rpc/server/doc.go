// Package server implements a small qdb server on top of the server transport.
// It answers get requests from an in-memory store (or with a fixed payload) and
// test requests with the existence of the key. An unknown command closes the
// connection, like the real server does.
//
// It exists to exercise clients: the serve command runs it standalone and the
// client tests run it on a loopback port.
package server
