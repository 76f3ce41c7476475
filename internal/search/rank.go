package search

import (
	"math"
	"sort"
	"strings"

	"headphones/internal/config"
)

// bytesPerKilobit matches how album sizes are estimated from a bitrate:
// seconds * kbps * 128.
const bytesPerKilobit = 128

// TargetSize estimates an album's size at a bitrate.
func TargetSize(bitrateKbps int, albumSeconds float64) int64 {
	if bitrateKbps <= 0 || albumSeconds <= 0 {
		return 0
	}
	return int64(albumSeconds * float64(bitrateKbps) * bytesPerKilobit)
}

// SizeWindow returns the accepted size range around the target size for a
// bitrate. lowPct and highPct are percentages of the target; a zero
// percentage leaves that side open.
func SizeWindow(bitrateKbps int, albumSeconds float64, lowPct, highPct int) (int64, int64) {
	target := TargetSize(bitrateKbps, albumSeconds)
	if target == 0 {
		return 0, 0
	}
	var low, high int64
	if lowPct > 0 {
		low = target - target*int64(lowPct)/100
	}
	if highPct > 0 {
		high = target + target*int64(highPct)/100
	}
	return low, high
}

// SortPreferred assigns priorities and sorts by priority then size, largest
// first. A title containing any preferred word gets priority 1; a provider
// named by a preferred word gains a bonus weighted by the word's position.
func SortPreferred(results []Result, preferred []string) {
	for i := range results {
		results[i].Priority = priority(results[i], preferred)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority > results[j].Priority
		}
		return results[i].Size > results[j].Size
	})
}

func priority(r Result, preferred []string) float64 {
	if len(preferred) == 0 {
		return 0
	}
	var p float64
	if _, ok := containsAnyFold(r.Title, preferred); ok {
		p = 1
	}
	provider := strings.ToLower(r.Provider)
	for i, word := range preferred {
		if strings.Contains(provider, strings.ToLower(word)) {
			weight := float64(len(preferred)-i) / float64(len(preferred))
			p += math.Round(weight*100) / 100
			break
		}
	}
	return p
}

// ClosestToTarget orders lossy results by distance from the target size,
// keeping priority first. Lossless results are only returned when no lossy
// result remains and allowLossless is set.
func ClosestToTarget(results []Result, target int64, allowLossless bool) []Result {
	var lossy, lossless []Result
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Title), "flac") {
			lossless = append(lossless, r)
			continue
		}
		lossy = append(lossy, r)
	}
	delta := func(r Result) int64 {
		d := target - r.Size
		if d < 0 {
			return -d
		}
		return d
	}
	sort.SliceStable(lossy, func(i, j int) bool {
		if lossy[i].Priority != lossy[j].Priority {
			return lossy[i].Priority > lossy[j].Priority
		}
		return delta(lossy[i]) < delta(lossy[j])
	})
	if len(lossy) == 0 && allowLossless {
		sort.SliceStable(lossless, func(i, j int) bool {
			if lossless[i].Priority != lossless[j].Priority {
				return lossless[i].Priority > lossless[j].Priority
			}
			return lossless[i].Size > lossless[j].Size
		})
		return lossless
	}
	return lossy
}

// OrderByKind applies PREFER_TORRENTS: usenet first, torrents first, or
// either kind with the existing order kept.
func OrderByKind(results []Result, mode int) {
	rank := func(k Kind) int {
		switch mode {
		case config.PreferUsenet:
			if k == KindNZB {
				return 0
			}
			return 1
		case config.PreferTorrents:
			if k == KindTorrent {
				return 0
			}
			return 1
		}
		return 0
	}
	sort.SliceStable(results, func(i, j int) bool {
		return rank(results[i].Kind) < rank(results[j].Kind)
	})
}
