package core

import (
	"context"
	"sync"
)

// BatchProcessEvents processes a batch of events concurrently.
//
// Items fan out one goroutine each; events for different users proceed in
// parallel while same-user updates are serialized by the engine's per-user
// lock. The result slice always has the same length and order as the input,
// with per-item errors: one failing item never aborts the rest of the batch.
//
// Example:
//
//	results := client.BatchProcessEvents(ctx, []*core.EventInput{
//	    {Content: "User completed onboarding", Options: []core.EventOption{core.WithUserID("u1")}},
//	    {Content: "User opened settings", Options: []core.EventOption{core.WithUserID("u2")}},
//	})
func (c *Client) BatchProcessEvents(ctx context.Context, inputs []*EventInput) []*EventResult {
	results := make([]*EventResult, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input *EventInput) {
			defer wg.Done()
			event, err := c.SubmitEvent(ctx, input.Content, input.Options...)
			results[i] = &EventResult{Event: event, Error: err}
		}(i, input)
	}
	wg.Wait()

	return results
}

// BatchEncodeIdentities encodes a batch of identities concurrently, with the
// same ordering and per-item error semantics as BatchProcessEvents.
func (c *Client) BatchEncodeIdentities(ctx context.Context, inputs []*IdentityInput) []*IdentityResult {
	results := make([]*IdentityResult, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input *IdentityInput) {
			defer wg.Done()
			identity, err := c.EncodeIdentity(ctx, input.UserID, input.Attributes, input.Options...)
			results[i] = &IdentityResult{Identity: identity, Error: err}
		}(i, input)
	}
	wg.Wait()

	return results
}
