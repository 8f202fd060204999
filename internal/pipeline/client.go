package pipeline

import (
	"context"
	"errors"

	"debrief/internal/memory"
	"debrief/internal/services"
	"debrief/internal/storage"
)

// ClientMemory loads the long-lived memory for a client.
func (p *Pipeline) ClientMemory(ctx context.Context, clientID string) (memory.ClientMemory, error) {
	mem := memory.NewClientMemory(clientID)
	err := storage.GetJSON(ctx, p.blobs, storage.MemoryKey(clientID), &mem)
	if errors.Is(err, storage.ErrNotExist) {
		return mem, services.Wrap(services.ErrNotFound, "memory", "load", "no memory recorded for client", err)
	}
	if err != nil {
		return mem, services.Wrap(services.ErrExternalService, "memory", "load", "load client memory", err)
	}
	return mem, nil
}

// Meetings lists the meeting ids with stored artifacts for a client.
func (p *Pipeline) Meetings(ctx context.Context, clientID string) ([]string, error) {
	return storage.ListMeetings(ctx, p.blobs, clientID)
}
