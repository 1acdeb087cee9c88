package client

import (
	"context"
	"sync/atomic"
)

// fakeBackend overrides the calls a test needs; anything else panics on
// the nil embedded interface.
type fakeBackend struct {
	Backend

	previewCalls atomic.Int32
	preview      func(ctx context.Context, sessionID string) (Preview, error)

	membersCalls atomic.Int32
	members      func(ctx context.Context, sessionID string) ([]Member, error)

	claimCalls atomic.Int32
	claim      func(ctx context.Context, sessionID, name, participantID string) (ClaimResult, error)

	readyCalls atomic.Int32
}

func (f *fakeBackend) Preview(ctx context.Context, sessionID string) (Preview, error) {
	f.previewCalls.Add(1)
	return f.preview(ctx, sessionID)
}

func (f *fakeBackend) Members(ctx context.Context, sessionID string) ([]Member, error) {
	f.membersCalls.Add(1)
	return f.members(ctx, sessionID)
}

func (f *fakeBackend) Claim(ctx context.Context, sessionID, name, participantID string) (ClaimResult, error) {
	f.claimCalls.Add(1)
	return f.claim(ctx, sessionID, name, participantID)
}

func (f *fakeBackend) SetReady(ctx context.Context, sessionID string) error {
	f.readyCalls.Add(1)
	return nil
}
