// Package snapshot reloads the order book from the fuel server at cold
// start. The fuel protocol is a TCP stream of 50-byte OrderSubmit records
// terminated by a zero-type sentinel record and a clean close.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"bolt/service"
	"bolt/wire"
)

// Load connects to the fuel server and inserts every streamed record
// directly into the book, bypassing the matching path. Any connect failure,
// truncation, or bad record is fatal to startup; the caller exits non-zero.
// The timeout bounds the whole load, not individual reads.
func Load(ctx context.Context, addr string, timeout time.Duration, engine *service.Engine, logger *zap.SugaredLogger) (int, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("connect fuel server %s: %w", addr, err)
	}
	defer conn.Close()
	deadline, _ := dialCtx.Deadline()
	_ = conn.SetDeadline(deadline)

	frame := make([]byte, wire.FrameSize)
	loaded := 0
	for {
		if _, err := io.ReadFull(conn, frame); err != nil {
			return loaded, fmt.Errorf("fuel stream truncated after %d records: %w", loaded, err)
		}
		msgType, err := wire.MessageType(frame)
		if err != nil {
			return loaded, err
		}
		if msgType == wire.MsgSentinel {
			break
		}
		if msgType != wire.MsgOrderSubmit {
			return loaded, fmt.Errorf("unexpected message type %d in fuel stream", msgType)
		}

		o := engine.AcquireOrder()
		if err := wire.DecodeOrder(frame, o); err != nil {
			engine.ReleaseOrder(o)
			return loaded, fmt.Errorf("fuel record %d: %w", loaded, err)
		}
		if err := engine.SeedResting(o); err != nil {
			engine.ReleaseOrder(o)
			return loaded, fmt.Errorf("fuel record %d: %w", loaded, err)
		}
		loaded++
	}

	logger.Infow("order book fueled", "server", addr, "orders", loaded)
	return loaded, nil
}
