// Package client implements the client pool that distributes transactions over
// a static set of endpoints.
//
// The package focuses on:
//   - Lending one connected executor per transaction, never sharing it
//   - Growing the set of connections lazily, bounded per endpoint
//   - Evicting failing connections and retrying on another one
//   - Closing idempotently while executions in flight finish
//
// Key Components:
//
//   - ClientPool: Holds the idle queue and the live executor count. Execute takes
//     an idle executor (waiting at most one poll interval), creates a new one if
//     none shows up, and evicts executors whose transaction failed. Callers only
//     see ErrResourceLimit once no live executor and no quota is left, and
//     ErrUnavailable once the pool is closing.
//
//   - EndpointQuota: Per endpoint budget of connections. Creation picks a random
//     endpoint with remaining budget. Budget is never returned, so an endpoint
//     whose connections keep failing eventually drops out.
//
// Usage Example:
//
//	conf := common.DefaultClientConfig()
//	conf.Endpoints = []string{"localhost:7001", "localhost:7002"}
//	conf.MaxConcurrency = 4
//
//	pool, _ := client.NewClientPool(conf, tcp.NewTCPClientConnector())
//	defer pool.Close()
//
//	tx := protocol.NewGet(key)
//	if _, err := pool.Execute(tx); err != nil {
//	  // ErrResourceLimit or ErrUnavailable
//	}
//	value, found := tx.Value()
package client
