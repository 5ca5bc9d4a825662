package commands

import (
	"go.uber.org/zap"

	"github.com/tenzoki/actorrt/agent"
	"github.com/tenzoki/actorrt/runtime"
)

// Request and Response are the producer/consumer demo's message types,
// matching the spec's scenario 3 exactly: Producer replies Response(v*2)
// to a Request(v); Consumer accumulates total += r on every Response.
type Request struct{ V int }
type Response struct{ R int }

type producerState struct{}

type consumerState struct {
	Total int
}

// wireDemoPipeline registers a producer and a consumer agent on r and
// starts both. It returns the producer's id, used to seed the first
// Request.
func wireDemoPipeline(r *runtime.Runtime, lg *zap.Logger) agent.ID {
	producer := agent.New(producerState{}).WithName("producer").WithLogger(lg)
	agent.RegisterHandler(producer, func(_ *producerState, req Request) any {
		return Response{R: req.V * 2}
	})

	consumer := agent.New(consumerState{}).WithName("consumer").WithLogger(lg)
	agent.RegisterHandler(consumer, func(s *consumerState, resp Response) any {
		s.Total += resp.R
		return nil
	})

	producerID, err := r.SpawnNamed("producer", producer)
	if err != nil {
		lg.Warn("producer already registered", zap.Error(err))
	}
	if _, err := r.SpawnNamed("consumer", consumer); err != nil {
		lg.Warn("consumer already registered", zap.Error(err))
	}
	return producerID
}
