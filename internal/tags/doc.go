// Package tags reads and writes audio file metadata.
//
// MP3 files use ID3v2 frames and FLAC files use Vorbis comments; other formats
// are read through ffprobe and cannot be written. Durations come from the
// ID3 TLEN frame, the FLAC STREAMINFO block or ffprobe, in that order of
// preference for each format.
package tags
