// Package postprocess verifies completed downloads and files them into the
// music library.
//
// A download folder is matched against the expected album by three tests run
// in a fixed order: embedded tags, file names, then total duration. The first
// passing test starts post-processing, a sequence of option-gated steps
// (encode, album art, cleanup, metadata, lyrics, rename, move, permissions)
// followed by catalog and snatch status updates. A folder that fails every
// test is marked Unprocessed and renamed so it is not picked up again.
//
// CheckFolders looks for the folders of pending snatches in the download
// directories; ForceProcess walks the download directories and guesses the
// album of each folder it finds.
package postprocess
