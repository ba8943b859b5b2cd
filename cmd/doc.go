// Package cmd implements the command-line interface of dbnetget. It provides a
// hierarchical command structure for querying qdb servers and for running a
// qdb test server.
//
// The package is organized into several subpackages:
//
//   - qdb: Commands that query keys on a pool of qdb servers (get, test)
//   - serve: Command that starts a qdb test server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dbnetget -help for a list of all commands.
package cmd
