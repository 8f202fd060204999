package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// CandidateExtensions lists the audio container formats the transcription
// backend accepts, in resolution order. DefaultExtension is assumed when no
// candidate exists on disk; the gap surfaces later as missing transcript
// content, not as a dispatch failure.
var CandidateExtensions = []string{".webm", ".aac", ".mp3", ".wav"}

const DefaultExtension = ".webm"

// ChunkKey returns the blob key for an uploaded audio chunk.
func ChunkKey(clientID, meetingID string, index int, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	return path.Join(clientID, meetingID, fmt.Sprintf("chunk_%d%s", index, ext))
}

// TranscriptKey returns the blob key for a chunk's structured transcript.
func TranscriptKey(clientID, meetingID string, index int) string {
	return path.Join(clientID, meetingID, fmt.Sprintf("chunk_%d.json", index))
}

// EventKey returns the blob key for the Layer 1 raw event record.
func EventKey(clientID, meetingID string) string {
	return path.Join(clientID, meetingID, "raw_event.json")
}

// InsightKey returns the blob key for the Layer 2 meeting insight record.
func InsightKey(clientID, meetingID string) string {
	return path.Join(clientID, meetingID, "meeting_insight.json")
}

// MemoryKey returns the blob key for the Layer 3 client memory record.
func MemoryKey(clientID string) string {
	return path.Join(clientID, "client_memory.json")
}

// MeetingPrefix returns the key prefix for all of a meeting's blobs.
func MeetingPrefix(clientID, meetingID string) string {
	return path.Join(clientID, meetingID) + "/"
}

// ResolveChunk locates the audio chunk for index, trying each candidate
// extension in order and defaulting when nothing exists on disk.
func ResolveChunk(ctx context.Context, store Store, clientID, meetingID string, index int) (string, error) {
	for _, ext := range CandidateExtensions {
		key := ChunkKey(clientID, meetingID, index, ext)
		ok, err := store.Exists(ctx, key)
		if err != nil {
			return "", err
		}
		if ok {
			return key, nil
		}
	}
	return ChunkKey(clientID, meetingID, index, DefaultExtension), nil
}

// ListMeetings returns the meeting ids with stored artifacts for a client,
// sorted lexicographically.
func ListMeetings(ctx context.Context, store Store, clientID string) ([]string, error) {
	keys, err := store.List(ctx, clientID+"/")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var meetings []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, clientID+"/")
		meeting, _, found := strings.Cut(rest, "/")
		if !found || meeting == "" {
			continue
		}
		if _, ok := seen[meeting]; ok {
			continue
		}
		seen[meeting] = struct{}{}
		meetings = append(meetings, meeting)
	}
	return meetings, nil
}
