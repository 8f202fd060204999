package main

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"debrief/internal/storage"
)

type chunkFile struct {
	path  string
	index int
}

type uploadResponse struct {
	Uploaded          int  `json:"uploaded"`
	DispatchTriggered bool `json:"dispatch_triggered"`
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var clientID string
	var meetingID string
	var total int
	var watch bool

	cmd := &cobra.Command{
		Use:   "upload <directory>",
		Short: "Upload a directory of audio chunks for one meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" || meetingID == "" {
				return fmt.Errorf("--client and --meeting are required")
			}
			if watch {
				if total <= 0 {
					return fmt.Errorf("--total is required with --watch")
				}
				return watchAndUpload(cmd, ctx, args[0], clientID, meetingID, total)
			}
			return uploadDirectory(cmd, ctx, args[0], clientID, meetingID, total)
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "Client identifier")
	cmd.Flags().StringVar(&meetingID, "meeting", "", "Meeting identifier")
	cmd.Flags().IntVar(&total, "total", 0, "Expected chunk count (defaults to the number of files found)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Watch the directory and upload chunks as they appear")
	return cmd
}

func uploadDirectory(cmd *cobra.Command, ctx *commandContext, dir, clientID, meetingID string, total int) error {
	chunks, err := collectChunks(dir)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no audio chunks found in %s", dir)
	}
	if total <= 0 {
		total = len(chunks)
	}

	out := cmd.OutOrStdout()
	for _, chunk := range chunks {
		result, err := uploadChunkFile(cmd.Context(), ctx, clientID, meetingID, chunk.index, total, chunk.path)
		if err != nil {
			return fmt.Errorf("upload %s: %w", filepath.Base(chunk.path), err)
		}
		fmt.Fprintf(out, "uploaded %s (%d/%d)\n", filepath.Base(chunk.path), result.Uploaded, total)
		if result.DispatchTriggered {
			fmt.Fprintln(out, "all chunks received; processing started")
		}
	}
	return nil
}

// watchAndUpload uploads existing chunks, then follows directory events until
// the daemon reports that the final chunk triggered processing.
func watchAndUpload(cmd *cobra.Command, ctx *commandContext, dir, clientID, meetingID string, total int) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	out := cmd.OutOrStdout()
	seen := make(map[int]bool)

	send := func(chunk chunkFile) (bool, error) {
		if seen[chunk.index] {
			return false, nil
		}
		result, err := uploadChunkFile(cmd.Context(), ctx, clientID, meetingID, chunk.index, total, chunk.path)
		if err != nil {
			return false, fmt.Errorf("upload %s: %w", filepath.Base(chunk.path), err)
		}
		seen[chunk.index] = true
		fmt.Fprintf(out, "uploaded %s (%d/%d)\n", filepath.Base(chunk.path), result.Uploaded, total)
		return result.DispatchTriggered, nil
	}

	existing, err := collectChunks(dir)
	if err != nil {
		return err
	}
	for _, chunk := range existing {
		done, err := send(chunk)
		if err != nil {
			return err
		}
		if done {
			fmt.Fprintln(out, "all chunks received; processing started")
			return nil
		}
	}

	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			index, ok := chunkIndex(event.Name)
			if !ok || seen[index] {
				continue
			}
			// Recorders often create then append; give the writer a moment.
			time.Sleep(200 * time.Millisecond)
			done, err := send(chunkFile{path: event.Name, index: index})
			if err != nil {
				return err
			}
			if done {
				fmt.Fprintln(out, "all chunks received; processing started")
				return nil
			}
		}
	}
}

var chunkIndexPattern = regexp.MustCompile(`(\d+)$`)

// chunkIndex extracts the trailing number from a chunk filename, e.g.
// chunk_3.webm yields 3.
func chunkIndex(path string) (int, bool) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if !validAudioExtension(ext) {
		return 0, false
	}
	stem := strings.TrimSuffix(name, ext)
	match := chunkIndexPattern.FindString(stem)
	if match == "" {
		return 0, false
	}
	index, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return index, true
}

func validAudioExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, candidate := range storage.CandidateExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func collectChunks(dir string) ([]chunkFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	chunks := make([]chunkFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		index, ok := chunkIndex(entry.Name())
		if !ok {
			continue
		}
		chunks = append(chunks, chunkFile{path: filepath.Join(dir, entry.Name()), index: index})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })
	return chunks, nil
}

func uploadChunkFile(ctx context.Context, cctx *commandContext, clientID, meetingID string, index, total int, path string) (uploadResponse, error) {
	var result uploadResponse
	data, err := os.ReadFile(path)
	if err != nil {
		return result, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"client_id":    clientID,
		"meeting_id":   meetingID,
		"chunk_index":  strconv.Itoa(index),
		"total_chunks": strconv.Itoa(total),
	}
	for field, value := range fields {
		if err := writer.WriteField(field, value); err != nil {
			return result, err
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return result, err
	}
	if _, err := part.Write(data); err != nil {
		return result, err
	}
	if err := writer.Close(); err != nil {
		return result, err
	}

	err = cctx.doRequest(ctx, "POST", "/api/v1/meetings/chunks", &body, writer.FormDataContentType(), &result)
	return result, err
}
