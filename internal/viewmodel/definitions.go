package viewmodel

import (
	"log/slog"
	"strconv"

	"headphones/internal/config"
)

func label(text, tooltip string) Presentation {
	return Presentation{Label: text, Tooltip: tooltip}
}

func choice(value int, text string, children ...Node) Choice {
	return Choice{Value: strconv.Itoa(value), Label: text, Children: children}
}

// Definitions builds the settings tree for the option catalog.
func Definitions(o *config.Options) []*Tab {
	return []*Tab{
		NewTab("general", "General",
			NewBlock("paths", "Paths",
				NewPath(o.DataDir, label("Data directory", "Database and log files live here")),
			),
			NewBlock("api", "API",
				NewString(o.APIBind, label("Listen address", "host:port for the JSON API; empty disables it")),
				NewPassword(o.APIKey, label("API key", "Required as a bearer token when set")),
			),
			NewBlock("logging", "Logging",
				NewDropdown(o.LogLevel, label("Log level", ""),
					Choice{Value: "debug", Label: "Debug"},
					Choice{Value: "info", Label: "Info"},
					Choice{Value: "warn", Label: "Warning"},
					Choice{Value: "error", Label: "Error"},
				),
				NewDropdown(o.LogFormat, label("Log format", ""),
					Choice{Value: "console", Label: "Console"},
					Choice{Value: "json", Label: "JSON"},
				),
				NewBool(o.LogFile, label("Write log files", "Daily JSON log files in the data directory")),
			),
			NewBlock("library", "Library",
				NewNumber(o.ScanInterval, label("Download scan interval", "Minutes between download folder scans")).Bounded(1, 1440),
				NewNumber(o.SearchInterval, label("Search interval", "Minutes between searches for wanted albums, 0 to disable")).Bounded(0, 10080),
				NewBool(o.AutoWantAlbums, label("Automatically want upcoming albums", "")),
				NewSwitch(o.IncludeExtras, label("Include extras", "Also track releases other than studio albums"),
					NewCheckboxList(o.Extras, label("Extras", ""), config.ReleaseExtras...),
				),
			),
		),
		NewTab("search", "Search",
			NewBlock("quality", "Quality",
				NewDropdown(o.PreferredQuality, label("Preferred quality", ""),
					choice(config.QualityHighest, "Highest quality excluding lossless"),
					choice(config.QualityLossless, "Lossless only"),
					choice(config.QualityPreferredBitrate, "Preferred bitrate",
						NewNumber(o.PreferredBitrate, label("Bitrate", "kbps")).Bounded(32, 1411),
						NewRange(o.BitrateBuffer, label("Accepted deviation", "Percent below and above the bitrate")),
						NewBool(o.AllowLosslessFallback, label("Allow lossless when no match", "")),
					),
					choice(config.QualityLosslessFallback, "Lossless, falling back to highest"),
				),
				&Message{Text: "Bitrate matching estimates each result's size from the album length."},
			),
			NewBlock("words", "Words",
				NewString(o.IgnoredWords, label("Ignored words", "Comma separated")),
				NewString(o.RequiredWords, label("Required words", "Comma separated; use OR inside a group")),
				NewString(o.PreferredWords, label("Preferred words", "Comma separated")),
				NewBool(o.IgnoreCleanReleases, label("Ignore clean/censored releases", "")),
			),
			NewBlock("limits", "Limits",
				NewString(o.MaxSize, label("Maximum size", "For example 700 MB; 0 disables the limit")),
				NewDropdown(o.PreferTorrents, label("Prefer", ""),
					choice(config.PreferUsenet, "NZBs"),
					choice(config.PreferTorrents, "Torrents"),
					choice(config.PreferEither, "Either, largest first"),
				),
			),
		),
		NewTab("download", "Download",
			NewBlock("torznab", "Torrents",
				NewSwitch(o.TorznabEnabled, label("Torznab", ""),
					NewString(o.TorznabHost, label("Host", "Base URL of the indexer")),
					NewPassword(o.TorznabAPIKey, label("API key", "")),
					NewString(o.TorznabCategories, label("Categories", "")),
					NewNumber(o.NumberOfSeeders, label("Minimum seeders", "")).Bounded(0, 100000),
				),
				NewPath(o.TorrentDownloadDir, label("Torrent download directory", "")),
				NewPath(o.TorrentBlackhole, label("Torrent blackhole", "Snatched .torrent files are written here")),
				NewBool(o.KeepTorrentFiles, label("Keep torrent files", "Process a copy so seeding continues")),
			),
			NewBlock("newznab", "Usenet",
				NewSwitch(o.NewznabEnabled, label("Newznab", ""),
					NewString(o.NewznabHost, label("Host", "Base URL of the indexer")),
					NewPassword(o.NewznabAPIKey, label("API key", "")),
					NewString(o.NewznabCategories, label("Categories", "")),
				),
				NewPath(o.DownloadDir, label("Usenet download directory", "")),
				NewPath(o.Blackhole, label("NZB blackhole", "Snatched .nzb files are written here")),
			),
		),
		NewTab("postprocess", "Post-processing",
			NewBlock("steps", "Steps",
				NewSwitch(o.MusicEncoder, label("Re-encode", "")),
				NewSwitch(o.AddAlbumArt, label("Add album art to the folder", ""),
					NewString(o.AlbumArtFormat, label("Art file name", "$Artist, $Album and $Year; .jpg is appended")),
				),
				NewBool(o.EmbedAlbumArt, label("Embed album art", "")),
				NewBool(o.CleanupFiles, label("Delete leftover files", "Removes non-audio files")),
				NewBool(o.CorrectMetadata, label("Correct metadata", "")),
				NewBool(o.EmbedLyrics, label("Embed lyrics", "")),
				NewSwitch(o.RenameFiles, label("Rename files", ""),
					NewString(o.FileFormat, label("File format", "$Disc $Track $Title $Artist $SortArtist $Album $Year")),
					NewBool(o.FileUnderscores, label("Use underscores", "")),
				),
				NewSwitch(o.MoveFiles, label("Move files", ""),
					NewPath(o.DestinationDir, label("Destination", "")),
					NewPath(o.LosslessDestinationDir, label("Lossless destination", "Empty uses the destination")),
					NewString(o.FolderFormat, label("Folder format", "$Artist $SortArtist $Album $Year $Type $First")),
					NewBool(o.ReplaceExistingFolders, label("Replace existing folders", "")),
					NewBool(o.KeepOriginalFolder, label("Keep original folder", "Copy instead of move")),
				),
			),
			NewBlock("permissions", "Permissions",
				NewString(o.FolderPermissions, label("Folder permissions", "Octal")),
				NewString(o.FilePermissions, label("File permissions", "Octal")),
			),
		),
		NewTab("encoder", "Encoder",
			NewBlock("encoder", "Encoder",
				NewDropdown(o.Encoder, label("Encoder", ""),
					Choice{Value: "ffmpeg", Label: "ffmpeg"},
					Choice{Value: "lame", Label: "lame"},
				),
				NewPath(o.EncoderPath, label("Encoder path", "Empty searches PATH")),
				NewCombobox(o.EncoderOutputFormat, label("Output format", ""), "mp3", "ogg", "m4a", "flac", "opus"),
				NewDropdown(o.EncoderVBRCBR, label("Mode", ""),
					Choice{Value: "cbr", Label: "Constant bitrate", Children: []Node{
						NewNumber(o.Bitrate, label("Bitrate", "kbps")).Bounded(32, 320),
					}},
					Choice{Value: "vbr", Label: "Variable bitrate", Children: []Node{
						NewNumber(o.EncoderQuality, label("Quality", "0 best, 9 worst")).Bounded(0, 9),
					}},
				),
				NewNumber(o.EncoderMaxThreads, label("Parallel encoders", "")).Bounded(1, 64),
				NewBool(o.EncoderLossless, label("Only re-encode lossless files", "")),
			),
		),
		NewTab("notifications", "Notifications",
			NewBlock("ntfy", "ntfy",
				NewString(o.NtfyTopic, label("Topic URL", "Empty disables notifications")),
				NewNumber(o.NtfyTimeout, label("Timeout", "Seconds")).Bounded(0, 300),
				NewBool(o.NotifyOnSnatch, label("On snatch", "")),
				NewBool(o.NotifyOnProcessed, label("On processed", "")),
				NewBool(o.NotifyOnUnprocessed, label("On unprocessed", "")),
				&Template{Name: "notify_test", Strings: map[string]string{"button": "Send test notification"}},
			),
		),
		NewTab("advanced", "Advanced",
			NewBlock("internal", "Internal",
				NewInternal(o.ConfigVersion),
			),
		),
	}
}

// NewFormParser builds the settings tree for a catalog and registers every
// field of it.
func NewFormParser(o *config.Options, logger *slog.Logger) (*Parser, []*Tab, error) {
	tabs := Definitions(o)
	parser := NewParser(logger)
	if err := parser.RegisterTree(tabs...); err != nil {
		return nil, nil, err
	}
	return parser, tabs, nil
}
