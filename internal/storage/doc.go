// Package storage persists the durable artifacts: uploaded audio chunks,
// per-chunk transcripts, and the three layered records (raw event, meeting
// insight, client memory). The surface is get/put-by-key with overwrite
// semantics; the disk implementation keeps the layout
//
//	<root>/<clientID>/<meetingID>/chunk_<i>.<ext>
//	<root>/<clientID>/<meetingID>/chunk_<i>.json
//	<root>/<clientID>/<meetingID>/raw_event.json
//	<root>/<clientID>/<meetingID>/meeting_insight.json
//	<root>/<clientID>/client_memory.json
//
// so artifacts are inspectable with ordinary tools.
package storage
