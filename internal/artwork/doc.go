// Package artwork fetches album cover art for post-processing.
//
// Art is downloaded from the album's artwork URL and normalized to a JPEG no
// larger than MaxDimension on either side. Successful downloads are cached
// under the data directory so a later run can reuse them when the remote is
// unavailable. Payloads under MinBytes are treated as missing art.
package artwork
