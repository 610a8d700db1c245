package testutils

import (
	"context"

	"github.com/ahrav/go-factorlens/internal/domain"
	"github.com/ahrav/go-factorlens/internal/ports"
)

// LaptopFactors is a realistic result set for a laptop query, in rank
// order. It contains a price factor so every derived view has data.
var LaptopFactors = []domain.Factor{
	{Rank: 1, Name: "Processor", EffectShort: "Faster compile times", Direction: domain.DirectionIncreases},
	{Rank: 2, Name: "RAM", EffectShort: "Smoother multitasking", Direction: domain.DirectionIncreases},
	{Rank: 3, Name: "Price", EffectShort: "₹85000", Direction: domain.DirectionDecreases},
	{Rank: 4, Name: "Battery", EffectShort: "Longer runtime", Direction: domain.DirectionSlightlyIncreases},
	{Rank: 5, Name: "Weight", EffectShort: "Portability", Direction: domain.DirectionDecreases},
	{Rank: 6, Name: "Display", EffectShort: "Eye comfort", Direction: domain.DirectionIncreases},
}

// PartialSteps returns one partial event per factor, in the given order.
func PartialSteps(factors []domain.Factor) []StreamStep {
	steps := make([]StreamStep, 0, len(factors))
	for _, f := range factors {
		steps = append(steps, StreamStep{Event: domain.PartialEvent{Factor: f}})
	}
	return steps
}

// FinalStep returns a final event carrying a copy of factors.
func FinalStep(factors []domain.Factor) StreamStep {
	return StreamStep{Event: domain.FinalEvent{Factors: append([]domain.Factor{}, factors...)}}
}

// MockJobSubmitter implements ports.JobSubmitter.
type MockJobSubmitter struct {
	JobID string
	Err   error
	// Items records every submitted item.
	Items []string
}

// SubmitJob implements ports.JobSubmitter.
func (m *MockJobSubmitter) SubmitJob(_ context.Context, item string) (string, error) {
	m.Items = append(m.Items, item)
	if m.Err != nil {
		return "", m.Err
	}
	return m.JobID, nil
}

// MockDialer implements ports.StreamDialer, handing out Stream.
type MockDialer struct {
	Stream ports.EventStream
	Err    error
	// JobIDs records every dialed job.
	JobIDs []string
}

// Dial implements ports.StreamDialer.
func (m *MockDialer) Dial(_ context.Context, jobID string) (ports.EventStream, error) {
	m.JobIDs = append(m.JobIDs, jobID)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Stream, nil
}
