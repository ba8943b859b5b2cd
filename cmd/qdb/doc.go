// Package qdb implements the qdb commands of the CLI.
//
// Both commands read keys line by line, execute one transaction per key on a
// client pool and hand the result to a processor:
//
//   - get: writes every value found to the output, followed by a newline
//   - test: writes "STATUS<TAB>KEY" for every key (Y, N, U or E)
//
// Lines that are not a valid key are reported with status E and never sent.
// The default engine processes one line at a time, the concurrent engine runs
// a fixed number of workers. A failing pool (all endpoints exhausted) ends
// the run with an error, SIGINT/SIGTERM end it quietly.
package qdb
