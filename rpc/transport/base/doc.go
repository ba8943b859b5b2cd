// Package base provides the transport core shared by all network media: the
// connection executor on the client side and a frame server on the server side.
// Medium specific dialing and listening is injected through connectors.
//
// The package focuses on:
//   - Executing transactions over one exclusively owned connection
//   - Reconnecting with a bounded number of attempts and a configurable delay
//   - Classifying failures as retryable or fatal
//   - Exact reads and full writes over a raw byte stream
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for medium specific operations
//     that allow extending the base transport with different network protocols.
//
//   - Executor: Owns one connection to one endpoint. Execute writes the request
//     chunks of a transaction, then feeds exactly the requested number of bytes
//     back into the transaction until it is done. On a transport error it
//     reconnects and replays the transaction. Connect attempts are retried on
//     timeouts and on refused, reset or aborted connections, everything else is
//     returned unchanged. With RetryMax == 0 no retry happens at all.
//
//   - serverTransport: Accepts connections and answers fixed size request frames
//     with a registered handler, one request at a time per connection.
//
// Thread Safety:
//
//	An Executor must only be used by one goroutine at a time (Close excepted).
//	The server transport creates a dedicated goroutine for each connection.
package base
