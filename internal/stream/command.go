package stream

import (
	"path/filepath"
	"strconv"
)

const (
	// SegmentSeconds is the target HLS segment duration.
	SegmentSeconds = 2
	// PlaylistSize is the number of segments kept in the live manifest;
	// ffmpeg deletes older segment files itself.
	PlaylistSize = 5

	manifestExt = ".m3u8"
)

// ManifestName returns the manifest file name for a session.
func ManifestName(streamID string) string {
	return streamID + manifestExt
}

// transcodeArgs builds the ffmpeg arguments that pull sourceURL over TCP,
// copy video, re-encode audio to AAC and write a rolling HLS window to
// outputDir/<streamID>.m3u8.
func transcodeArgs(sourceURL, outputDir, streamID string) []string {
	return []string{
		"-rtsp_transport", "tcp",
		"-i", sourceURL,
		"-c:v", "copy",
		"-c:a", "aac",
		"-f", "hls",
		"-hls_time", strconv.Itoa(SegmentSeconds),
		"-hls_list_size", strconv.Itoa(PlaylistSize),
		"-hls_flags", "delete_segments",
		filepath.Join(outputDir, ManifestName(streamID)),
	}
}
