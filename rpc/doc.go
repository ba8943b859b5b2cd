// Package rpc provides the client side networking of dbnetget: a pool of
// connection executors that run request/response transactions against a set
// of qdb servers.
//
// The package is organized into several subpackages:
//
//   - common: Error taxonomy, configuration structures, endpoints and logging.
//
//   - transport: The transaction contract and the server transport interface,
//     with the shared core in base and the TCP medium in tcp.
//
//   - client: The client pool with per endpoint connection quotas.
//
//   - protocol: The qdb get and test transactions and a static registry
//     mapping protocol names to constructors.
//
//   - server: A small qdb server used by the serve command and by tests.
package rpc
