package client

import (
	"math/rand"

	"github.com/ValentinKolb/dbnetget/rpc/common"
)

// EndpointQuota tracks how many connections may still be created per endpoint.
// Quota is consumed on creation and never given back, so the number of
// connections ever created against an endpoint is bounded by the limit.
//
// EndpointQuota is not safe for concurrent use, the pool guards it with its lock.
type EndpointQuota struct {
	remaining  map[common.Endpoint]int
	created    map[common.Endpoint]int
	candidates []common.Endpoint
	intn       func(n int) int
}

// NewEndpointQuota grants every endpoint limit connections
func NewEndpointQuota(endpoints []common.Endpoint, limit int) *EndpointQuota {
	q := &EndpointQuota{
		remaining:  make(map[common.Endpoint]int, len(endpoints)),
		created:    make(map[common.Endpoint]int, len(endpoints)),
		candidates: make([]common.Endpoint, 0, len(endpoints)),
		intn:       rand.Intn,
	}
	for _, ep := range endpoints {
		if _, ok := q.remaining[ep]; ok {
			continue
		}
		q.remaining[ep] = limit
		q.candidates = append(q.candidates, ep)
	}
	return q
}

// Take picks a candidate uniformly at random and consumes one unit of its quota.
// Candidates without quota are dropped on the way. It returns false once no
// candidate is left.
func (q *EndpointQuota) Take() (common.Endpoint, bool) {
	for len(q.candidates) > 0 {
		i := q.intn(len(q.candidates))
		ep := q.candidates[i]

		if q.remaining[ep] <= 0 {
			q.drop(i)
			continue
		}

		q.remaining[ep]--
		q.created[ep]++
		if q.remaining[ep] == 0 {
			q.drop(i)
		}
		return ep, true
	}
	return common.Endpoint{}, false
}

// Empty reports whether no candidate endpoint is left
func (q *EndpointQuota) Empty() bool {
	return len(q.candidates) == 0
}

// Candidates returns the number of endpoints that may still get a connection
func (q *EndpointQuota) Candidates() int {
	return len(q.candidates)
}

// Remaining returns the quota left for ep
func (q *EndpointQuota) Remaining(ep common.Endpoint) int {
	return q.remaining[ep]
}

// Created returns how many connections were ever created for ep
func (q *EndpointQuota) Created(ep common.Endpoint) int {
	return q.created[ep]
}

// drop removes the candidate at index i (order is not preserved)
func (q *EndpointQuota) drop(i int) {
	last := len(q.candidates) - 1
	q.candidates[i] = q.candidates[last]
	q.candidates = q.candidates[:last]
}
