package transport

import (
	"context"

	"go.uber.org/zap"

	"bolt/service"
	"bolt/wire"
)

// Broadcaster drains the engine's outbound queue and sends match results on
// the result group and status records on the status group. It never
// backpressures the matcher; queue sizing sets the burst tolerance.
type Broadcaster struct {
	results *Sender
	status  *Sender
	engine  *service.Engine
	logger  *zap.SugaredLogger
}

func NewBroadcaster(resultAddr, statusAddr string, engine *service.Engine, logger *zap.SugaredLogger) (*Broadcaster, error) {
	results, err := NewSender(resultAddr)
	if err != nil {
		return nil, err
	}
	status, err := NewSender(statusAddr)
	if err != nil {
		results.Close()
		return nil, err
	}
	logger.Infow("egress broadcaster ready", "results", resultAddr, "status", statusAddr)
	return &Broadcaster{results: results, status: status, engine: engine, logger: logger}, nil
}

func (b *Broadcaster) Run(ctx context.Context) {
	frame := make([]byte, wire.FrameSize)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-b.engine.Outbound():
			if m.Result != nil {
				wire.EncodeResult(frame, m.Result)
				if err := b.results.Send(frame); err != nil {
					b.logger.Debugw("result broadcast failed", "err", err)
				}
			} else if m.Status != nil {
				wire.EncodeStatus(frame, m.Status)
				if err := b.status.Send(frame); err != nil {
					b.logger.Debugw("status broadcast failed", "err", err)
				}
			}
		}
	}
}

func (b *Broadcaster) Close() {
	b.results.Close()
	b.status.Close()
}
