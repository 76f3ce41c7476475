// Package ffprobe reads tags and stream details of audio formats that have no
// native tag parser, such as Ogg, Opus and AAC, by running ffprobe.
package ffprobe
