// Package common provides core data structures and utilities shared across
// the client, the transport layer and the test server.
//
// The package focuses on:
//   - The error taxonomy seen by callers of executors and pools
//   - Classification of socket errors into retryable and fatal ones
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger registry
//
// Key Components:
//
//   - Errors: ErrServerClosed, ErrResourceLimit and ErrUnavailable are sentinels,
//     RetryLimitExceededError carries the attempt counts and matches
//     ErrRetryLimitExceeded via errors.Is. Raw socket errors are never wrapped.
//
//   - Endpoint: A host/port pair. Its string form is its identity.
//
//   - ClientConfig: Endpoints, per endpoint connection limit, timeouts and retry
//     behavior. Can be overlaid from a TOML file with LoadClientConfigFile.
//
//   - ServerConfig: Configuration of the qdb test server.
//
//   - Logger: zerolog based implementation of Dragonboat's ILogger, installed
//     for all loggers of this module by InitLoggers.
package common
