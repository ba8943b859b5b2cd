package qdb

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/dbnetget/rpc/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executed runs tx against a canned reply
func executed(t *testing.T, tx protocol.Protocol, reply []byte) protocol.Protocol {
	up := tx.Upstream()
	for {
		if _, done := up.NextOutboundChunk(); done {
			break
		}
	}
	down := tx.Downstream()
	size, err := down.SubmitInboundBytes(nil)
	for err == nil && size > 0 {
		require.GreaterOrEqual(t, len(reply), size)
		data := reply[:size]
		reply = reply[size:]
		size, err = down.SubmitInboundBytes(data)
	}
	require.NoError(t, err)
	return tx
}

func TestGetProcessor(t *testing.T) {
	var out bytes.Buffer
	p := NewGetProcessor(&out)

	found := executed(t, protocol.NewGet(protocol.Key{}), protocol.EncodeGetResponse([]byte("value")))
	status, err := p.Process("k1", found)
	require.NoError(t, err)
	assert.Equal(t, StatusYes, status)

	missing := executed(t, protocol.NewGet(protocol.Key{}), protocol.EncodeGetResponse(nil))
	status, err = p.Process("k2", missing)
	require.NoError(t, err)
	assert.Equal(t, StatusNo, status)

	status, err = p.Process("garbage", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, status)

	assert.Equal(t, "value\n", out.String())
}

func TestTestProcessor(t *testing.T) {
	var out bytes.Buffer
	p := NewTestProcessor(&out)

	replies := []struct {
		data   string
		status int32
	}{
		{"k1", protocol.StatusExists},
		{"k2", protocol.StatusMissing},
		{"k3", -1},
	}
	for _, r := range replies {
		_, err := p.Process(r.data, executed(t, protocol.NewTest(protocol.Key{}), protocol.EncodeStatus(r.status)))
		require.NoError(t, err)
	}
	status, err := p.Process("garbage", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, status)

	assert.Equal(t, "Y\tk1\nN\tk2\nU\tk3\nE\tgarbage\n", out.String())
}
