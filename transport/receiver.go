package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"bolt/service"
	"bolt/wire"
)

// Receiver joins the order multicast group and feeds typed messages onto the
// engine's inbound queue. Malformed packets and queue-full drops are counted
// and never propagate.
type Receiver struct {
	conn   *ipv4.PacketConn
	engine *service.Engine
	logger *zap.SugaredLogger
}

func NewReceiver(addr string, engine *service.Engine, logger *zap.SugaredLogger) (*Receiver, error) {
	conn, err := listen(addr)
	if err != nil {
		return nil, err
	}
	logger.Infow("ingress receiver joined", "group", addr)
	return &Receiver{conn: conn, engine: engine, logger: logger}, nil
}

// Run reads datagrams until the context is cancelled. Closing the socket on
// cancellation is what unblocks the read.
func (r *Receiver) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		r.conn.Close()
	}()

	buf := make([]byte, 128)
	for {
		n, _, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Warnw("udp receive error", "err", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		r.handle(buf[:n])
	}
}

func (r *Receiver) handle(frame []byte) {
	counters := r.engine.Counters()
	msgType, err := wire.MessageType(frame)
	if err != nil {
		counters.Malformed.Add(1)
		return
	}

	switch msgType {
	case wire.MsgOrderSubmit:
		o := r.engine.AcquireOrder()
		if err := wire.DecodeOrder(frame, o); err != nil {
			counters.Malformed.Add(1)
			r.engine.ReleaseOrder(o)
			return
		}
		if o.ProductID != r.engine.ProductID() {
			counters.Malformed.Add(1)
			r.engine.ReleaseOrder(o)
			return
		}
		counters.Received.Add(1)
		if !r.engine.TryEnqueue(service.Inbound{Order: o}) {
			counters.InboundDrops.Add(1)
			r.engine.ReleaseOrder(o)
		}

	case wire.MsgOrderCancel:
		productID, orderID, err := wire.DecodeCancel(frame)
		if err != nil || productID != r.engine.ProductID() {
			counters.Malformed.Add(1)
			return
		}
		counters.Received.Add(1)
		if !r.engine.TryEnqueue(service.Inbound{CancelID: orderID}) {
			counters.InboundDrops.Add(1)
		}

	default:
		counters.Malformed.Add(1)
	}
}
