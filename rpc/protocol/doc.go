// Package protocol implements the qdb request/response protocols as transactions
// for the transport layer, plus a static registry mapping protocol names to
// constructors.
//
// Wire format (big endian):
//
//	request:       cmd:int8 | keyLen:int32 (=16) | key:16 bytes | flag:int32
//	get reply:     size:int32 | payload:size bytes   (size <= 0: not found)
//	test reply:    status:int32                      (1 exists, 0 missing, < 0 unknown)
//
// Transactions are replay safe: every Upstream/Downstream call starts a fresh
// pass and resets the parsed result, so an executor may resend them after a
// reconnect.
package protocol
