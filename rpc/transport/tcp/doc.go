// Package tcp implements the TCP medium for the transport layer. It provides
// concrete implementations of the base package's connector interfaces.
//
// Key Components:
//
//   - clientConnector: dials with the configured connect timeout and applies
//     TCPConf and SocketConf (nodelay, keep-alive, linger, buffer sizes)
//
//   - serverConnector: creates the TCP listener used by the base frame server
package tcp
