package qdb

import (
	"io"

	"github.com/ValentinKolb/dbnetget/rpc/protocol"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/valyala/bytebufferpool"
)

var Logger = logger.GetLogger("cli")

// Result status letters
const (
	StatusYes     = "Y"
	StatusNo      = "N"
	StatusUnknown = "U"
	StatusError   = "E"
)

// Processor handles the outcome of one input line. proto is nil if the line
// could not be turned into a successful transaction.
type Processor interface {
	Process(data string, proto protocol.Protocol) (status string, err error)
}

// --------------------------------------------------------------------------
// get
// --------------------------------------------------------------------------

// getProcessor writes every value found, followed by a newline
type getProcessor struct {
	out io.Writer
}

// NewGetProcessor creates the processor of the get command
func NewGetProcessor(out io.Writer) Processor {
	return &getProcessor{out: out}
}

func (p *getProcessor) Process(data string, proto protocol.Protocol) (string, error) {
	status := StatusNo
	if proto == nil {
		status = StatusError
	} else if get, ok := proto.(*protocol.Get); ok {
		if value, found := get.Value(); found && len(value) > 0 {
			status = StatusYes

			buf := bytebufferpool.Get()
			_, _ = buf.Write(value)
			_ = buf.WriteByte('\n')
			_, err := buf.WriteTo(p.out)
			bytebufferpool.Put(buf)
			if err != nil {
				return status, err
			}
		}
	}
	Logger.Infof("%s\t%s", data, status)
	return status, nil
}

// --------------------------------------------------------------------------
// test
// --------------------------------------------------------------------------

// testProcessor writes one "status<TAB>key" line per input
type testProcessor struct {
	out io.Writer
}

// NewTestProcessor creates the processor of the test command
func NewTestProcessor(out io.Writer) Processor {
	return &testProcessor{out: out}
}

func (p *testProcessor) Process(data string, proto protocol.Protocol) (string, error) {
	status := StatusError
	if proto != nil {
		status = StatusUnknown
		if test, ok := proto.(*protocol.Test); ok {
			if exists, known := test.Exists(); known {
				status = StatusNo
				if exists {
					status = StatusYes
				}
			}
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString(status)
	_ = buf.WriteByte('\t')
	_, _ = buf.WriteString(data)
	_ = buf.WriteByte('\n')
	if _, err := buf.WriteTo(p.out); err != nil {
		return status, err
	}

	Logger.Infof("%s\t%s", data, status)
	return status, nil
}
