package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrNotPlaylist is returned when the input does not start with #EXTM3U.
var ErrNotPlaylist = errors.New("not an HLS playlist")

// Segment is one media segment listed in a manifest.
type Segment struct {
	Sequence int64
	Duration float64
	URI      string
}

// Playlist is the subset of an HLS media playlist the status endpoint reports.
type Playlist struct {
	TargetDuration int
	MediaSequence  int64
	Segments       []Segment
	Ended          bool
}

// Duration is the total duration of the listed segments, in seconds.
func (p Playlist) Duration() float64 {
	total := 0.0
	for _, seg := range p.Segments {
		total += seg.Duration
	}
	return total
}

// ParsePlaylist reads a live HLS media playlist as written by ffmpeg's hls
// muxer. Unknown tags are ignored. Segment sequence numbers count up from
// #EXT-X-MEDIA-SEQUENCE.
func ParsePlaylist(r io.Reader) (Playlist, error) {
	var (
		p          Playlist
		pending    *float64
		sawHeader  bool
		lineNumber int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNumber++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			if line != "#EXTM3U" {
				return Playlist{}, ErrNotPlaylist
			}
			sawHeader = true
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			n, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"))
			if err != nil {
				return Playlist{}, fmt.Errorf("line %d: target duration: %w", lineNumber, err)
			}
			p.TargetDuration = n
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			n, err := strconv.ParseInt(strings.TrimPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"), 10, 64)
			if err != nil {
				return Playlist{}, fmt.Errorf("line %d: media sequence: %w", lineNumber, err)
			}
			p.MediaSequence = n
		case strings.HasPrefix(line, "#EXTINF:"):
			v := strings.TrimPrefix(line, "#EXTINF:")
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			d, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Playlist{}, fmt.Errorf("line %d: segment duration: %w", lineNumber, err)
			}
			pending = &d
		case line == "#EXT-X-ENDLIST":
			p.Ended = true
		case strings.HasPrefix(line, "#"):
			// Other tags and comments.
		default:
			seg := Segment{
				Sequence: p.MediaSequence + int64(len(p.Segments)),
				URI:      line,
			}
			if pending != nil {
				seg.Duration = *pending
				pending = nil
			}
			p.Segments = append(p.Segments, seg)
		}
	}
	if err := sc.Err(); err != nil {
		return Playlist{}, err
	}
	if !sawHeader {
		return Playlist{}, ErrNotPlaylist
	}
	if p.TargetDuration == 0 {
		p.TargetDuration = targetDurationFromSegments(p.Segments)
	}
	return p, nil
}

// targetDurationFromSegments returns the HLS #EXT-X-TARGETDURATION value:
// the ceiling of the maximum segment duration in seconds (integer).
func targetDurationFromSegments(segments []Segment) int {
	max := 0.0
	for _, seg := range segments {
		if seg.Duration > max {
			max = seg.Duration
		}
	}
	if max <= 0 {
		return 1
	}
	return int(math.Ceil(max))
}
