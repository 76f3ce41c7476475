// Package encoder re-encodes downloaded audio with an external ffmpeg or
// lame binary.
//
// Each media file that is not already in the target format is encoded next
// to its source at the configured bitrate or VBR quality. Up to
// ENCODER_MAX_THREADS files are encoded at once. Originals are removed after
// a successful encode unless KEEP_ORIGINAL_FOLDER is set.
package encoder
