// Package transport defines the contract between the network layer and the
// protocol objects that describe what is sent and how replies are parsed.
//
// Key Components:
//
//   - Transaction: one request/response exchange, replayable after a reconnect.
//
//   - Upstream: the ordered, finite sequence of byte chunks of the request.
//
//   - Downstream: the resumable reply exchange. It asks for a number of bytes,
//     receives exactly that many and answers with the next size until it
//     yields a non-positive size.
//
//   - IServerTransport: the server side, answering fixed size request frames
//     with a registered handler.
//
// The concrete executors live in the base package, protocol specific dialing
// in the tcp package.
package transport
