package config

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Section names used by the option catalog.
const (
	SectionGeneral     = "General"
	SectionSearch      = "Search"
	SectionTorrent     = "Torrent"
	SectionUsenet      = "Usenet"
	SectionPostProcess = "PostProcess"
	SectionEncoder     = "Encoder"
	SectionNotify      = "Notify"
	SectionAdvanced    = "Advanced"
)

// Quality modes for PREFERRED_QUALITY.
const (
	QualityHighest          = 0
	QualityLossless         = 1
	QualityPreferredBitrate = 2
	QualityLosslessFallback = 3
)

// Torrent/usenet preference for PREFER_TORRENTS.
const (
	PreferUsenet   = 0
	PreferTorrents = 1
	PreferEither   = 2
)

// ReleaseExtras lists the release types selectable in EXTRAS.
var ReleaseExtras = []string{
	"single", "ep", "compilation", "soundtrack", "live", "remix",
	"spokenword", "audiobook", "interview", "demo", "other",
}

// Options is the catalog of every option the application reads.
type Options struct {
	// General
	DataDir        *Option[Path]
	LogLevel       *Option[string]
	LogFormat      *Option[string]
	LogFile        *Option[bool]
	ScanInterval   *Option[int]
	SearchInterval *Option[int]
	APIBind        *Option[string]
	APIKey         *Option[string]
	ConfigVersion  *Option[int]
	IncludeExtras  *Option[bool]
	Extras         *Option[[]string]
	AutoWantAlbums *Option[bool]

	// Search
	PreferredQuality      *Option[int]
	PreferredBitrate      *Option[int]
	BitrateBuffer         *Option[[]int]
	AllowLosslessFallback *Option[bool]
	IgnoredWords          *Option[string]
	RequiredWords         *Option[string]
	PreferredWords        *Option[string]
	IgnoreCleanReleases   *Option[bool]
	PreferTorrents        *Option[int]
	MaxSize               *Option[string]

	// Torrent
	TorznabEnabled     *Option[bool]
	TorznabHost        *Option[string]
	TorznabAPIKey      *Option[string]
	TorznabCategories  *Option[string]
	NumberOfSeeders    *Option[int]
	TorrentDownloadDir *Option[Path]
	TorrentBlackhole   *Option[Path]
	KeepTorrentFiles   *Option[bool]

	// Usenet
	NewznabEnabled    *Option[bool]
	NewznabHost       *Option[string]
	NewznabAPIKey     *Option[string]
	NewznabCategories *Option[string]
	DownloadDir       *Option[Path]
	Blackhole         *Option[Path]

	// PostProcess
	MusicEncoder           *Option[bool]
	EmbedAlbumArt          *Option[bool]
	AddAlbumArt            *Option[bool]
	AlbumArtFormat         *Option[string]
	CleanupFiles           *Option[bool]
	CorrectMetadata        *Option[bool]
	EmbedLyrics            *Option[bool]
	RenameFiles            *Option[bool]
	MoveFiles              *Option[bool]
	DestinationDir         *Option[Path]
	LosslessDestinationDir *Option[Path]
	FolderFormat           *Option[string]
	FileFormat             *Option[string]
	FileUnderscores        *Option[bool]
	ReplaceExistingFolders *Option[bool]
	KeepOriginalFolder     *Option[bool]
	FolderPermissions      *Option[string]
	FilePermissions        *Option[string]

	// Encoder
	Encoder             *Option[string]
	EncoderPath         *Option[Path]
	Bitrate             *Option[int]
	EncoderOutputFormat *Option[string]
	EncoderVBRCBR       *Option[string]
	EncoderQuality      *Option[int]
	EncoderMaxThreads   *Option[int]
	EncoderLossless     *Option[bool]

	// Notify
	NtfyTopic           *Option[string]
	NtfyTimeout         *Option[int]
	NotifyOnSnatch      *Option[bool]
	NotifyOnProcessed   *Option[bool]
	NotifyOnUnprocessed *Option[bool]
}

// NewOptions declares the catalog with its defaults.
func NewOptions() *Options {
	return &Options{
		DataDir:        NewOption("DATA_DIR", SectionGeneral, Path("~/.local/share/headphones"), ToPath),
		LogLevel:       NewOption("LOG_LEVEL", SectionGeneral, "info", ToString),
		LogFormat:      NewOption("LOG_FORMAT", SectionGeneral, "console", ToString),
		LogFile:        NewOption("LOG_FILE", SectionGeneral, true, ToBoolExt),
		ScanInterval:   NewOption("DOWNLOAD_SCAN_INTERVAL", SectionGeneral, 5, ToInt),
		SearchInterval: NewOption("SEARCH_INTERVAL", SectionGeneral, 1440, ToInt),
		APIBind:        NewOption("API_BIND", SectionGeneral, "", ToString),
		APIKey:         NewOption("API_KEY", SectionGeneral, "", ToString),
		ConfigVersion:  NewOption("CONFIG_VERSION", SectionAdvanced, 1, ToInt),
		IncludeExtras:  NewOption("INCLUDE_EXTRAS", SectionGeneral, false, ToBoolExt),
		Extras:         NewOption("EXTRAS", SectionGeneral, []string{}, ToStringList),
		AutoWantAlbums: NewOption("AUTOWANT_UPCOMING", SectionGeneral, true, ToBoolExt),

		PreferredQuality:      NewOption("PREFERRED_QUALITY", SectionSearch, QualityHighest, ToInt),
		PreferredBitrate:      NewOption("PREFERRED_BITRATE", SectionSearch, 192, ToInt),
		BitrateBuffer:         NewOption("PREFERRED_BITRATE_BUFFER", SectionSearch, []int{20, 20}, ToIntList),
		AllowLosslessFallback: NewOption("PREFERRED_BITRATE_ALLOW_LOSSLESS", SectionSearch, false, ToBoolExt),
		IgnoredWords:          NewOption("IGNORED_WORDS", SectionSearch, "", ToString),
		RequiredWords:         NewOption("REQUIRED_WORDS", SectionSearch, "", ToString),
		PreferredWords:        NewOption("PREFERRED_WORDS", SectionSearch, "", ToString),
		IgnoreCleanReleases:   NewOption("IGNORE_CLEAN_RELEASES", SectionSearch, false, ToBoolExt),
		PreferTorrents:        NewOption("PREFER_TORRENTS", SectionSearch, PreferUsenet, ToInt),
		MaxSize:               NewOption("MAX_SIZE", SectionSearch, "0", ToString),

		TorznabEnabled:     NewOption("TORZNAB", SectionTorrent, false, ToBoolExt),
		TorznabHost:        NewOption("TORZNAB_HOST", SectionTorrent, "", ToString),
		TorznabAPIKey:      NewOption("TORZNAB_APIKEY", SectionTorrent, "", ToString),
		TorznabCategories:  NewOption("TORZNAB_CATEGORIES", SectionTorrent, "3000", ToString),
		NumberOfSeeders:    NewOption("NUMBEROFSEEDERS", SectionTorrent, 10, ToInt),
		TorrentDownloadDir: NewOption("DOWNLOAD_TORRENT_DIR", SectionTorrent, Path(""), ToPath),
		TorrentBlackhole:   NewOption("TORRENTBLACKHOLE_DIR", SectionTorrent, Path(""), ToPath),
		KeepTorrentFiles:   NewOption("KEEP_TORRENT_FILES", SectionTorrent, false, ToBoolExt),

		NewznabEnabled:    NewOption("NEWZNAB", SectionUsenet, false, ToBoolExt),
		NewznabHost:       NewOption("NEWZNAB_HOST", SectionUsenet, "", ToString),
		NewznabAPIKey:     NewOption("NEWZNAB_APIKEY", SectionUsenet, "", ToString),
		NewznabCategories: NewOption("NEWZNAB_CATEGORIES", SectionUsenet, "3010", ToString),
		DownloadDir:       NewOption("DOWNLOAD_DIR", SectionUsenet, Path(""), ToPath),
		Blackhole:         NewOption("BLACKHOLE_DIR", SectionUsenet, Path(""), ToPath),

		MusicEncoder:           NewOption("MUSIC_ENCODER", SectionPostProcess, false, ToBoolExt),
		EmbedAlbumArt:          NewOption("EMBED_ALBUM_ART", SectionPostProcess, false, ToBoolExt),
		AddAlbumArt:            NewOption("ADD_ALBUM_ART", SectionPostProcess, false, ToBoolExt),
		AlbumArtFormat:         NewOption("ALBUM_ART_FORMAT", SectionPostProcess, "folder", ToString),
		CleanupFiles:           NewOption("CLEANUP_FILES", SectionPostProcess, false, ToBoolExt),
		CorrectMetadata:        NewOption("CORRECT_METADATA", SectionPostProcess, false, ToBoolExt),
		EmbedLyrics:            NewOption("EMBED_LYRICS", SectionPostProcess, false, ToBoolExt),
		RenameFiles:            NewOption("RENAME_FILES", SectionPostProcess, false, ToBoolExt),
		MoveFiles:              NewOption("MOVE_FILES", SectionPostProcess, false, ToBoolExt),
		DestinationDir:         NewOption("DESTINATION_DIR", SectionPostProcess, Path(""), ToPath),
		LosslessDestinationDir: NewOption("LOSSLESS_DESTINATION_DIR", SectionPostProcess, Path(""), ToPath),
		FolderFormat:           NewOption("FOLDER_FORMAT", SectionPostProcess, "$Artist/$Album [$Year]", ToString),
		FileFormat:             NewOption("FILE_FORMAT", SectionPostProcess, "$Track $Artist - $Album [$Year] - $Title", ToString),
		FileUnderscores:        NewOption("FILE_UNDERSCORES", SectionPostProcess, false, ToBoolExt),
		ReplaceExistingFolders: NewOption("REPLACE_EXISTING_FOLDERS", SectionPostProcess, false, ToBoolExt),
		KeepOriginalFolder:     NewOption("KEEP_ORIGINAL_FOLDER", SectionPostProcess, false, ToBoolExt),
		FolderPermissions:      NewOption("FOLDER_PERMISSIONS", SectionPostProcess, "0755", ToString),
		FilePermissions:        NewOption("FILE_PERMISSIONS", SectionPostProcess, "0644", ToString),

		Encoder:             NewOption("ENCODER", SectionEncoder, "ffmpeg", ToString),
		EncoderPath:         NewOption("ENCODER_PATH", SectionEncoder, Path(""), ToPath),
		Bitrate:             NewOption("BITRATE", SectionEncoder, 192, ToInt),
		EncoderOutputFormat: NewOption("ENCODER_OUTPUT_FORMAT", SectionEncoder, "mp3", ToString),
		EncoderVBRCBR:       NewOption("ENCODER_VBR_CBR", SectionEncoder, "cbr", ToString),
		EncoderQuality:      NewOption("ENCODER_QUALITY", SectionEncoder, 2, ToInt),
		EncoderMaxThreads:   NewOption("ENCODER_MAX_THREADS", SectionEncoder, 1, ToInt),
		EncoderLossless:     NewOption("ENCODER_LOSSLESS", SectionEncoder, true, ToBoolExt),

		NtfyTopic:           NewOption("NTFY_TOPIC", SectionNotify, "", ToString),
		NtfyTimeout:         NewOption("NTFY_TIMEOUT", SectionNotify, 10, ToInt),
		NotifyOnSnatch:      NewOption("NOTIFY_ON_SNATCH", SectionNotify, false, ToBoolExt),
		NotifyOnProcessed:   NewOption("NOTIFY_ON_PROCESSED", SectionNotify, true, ToBoolExt),
		NotifyOnUnprocessed: NewOption("NOTIFY_ON_UNPROCESSED", SectionNotify, true, ToBoolExt),
	}
}

// Entries lists every option in declaration order.
func (o *Options) Entries() []Entry {
	return []Entry{
		o.DataDir, o.LogLevel, o.LogFormat, o.LogFile, o.ScanInterval, o.SearchInterval,
		o.APIBind, o.APIKey, o.ConfigVersion,
		o.IncludeExtras, o.Extras, o.AutoWantAlbums,
		o.PreferredQuality, o.PreferredBitrate, o.BitrateBuffer, o.AllowLosslessFallback,
		o.IgnoredWords, o.RequiredWords, o.PreferredWords, o.IgnoreCleanReleases, o.PreferTorrents, o.MaxSize,
		o.TorznabEnabled, o.TorznabHost, o.TorznabAPIKey, o.TorznabCategories, o.NumberOfSeeders,
		o.TorrentDownloadDir, o.TorrentBlackhole, o.KeepTorrentFiles,
		o.NewznabEnabled, o.NewznabHost, o.NewznabAPIKey, o.NewznabCategories, o.DownloadDir, o.Blackhole,
		o.MusicEncoder, o.EmbedAlbumArt, o.AddAlbumArt, o.AlbumArtFormat, o.CleanupFiles,
		o.CorrectMetadata, o.EmbedLyrics, o.RenameFiles, o.MoveFiles, o.DestinationDir,
		o.LosslessDestinationDir, o.FolderFormat, o.FileFormat, o.FileUnderscores,
		o.ReplaceExistingFolders, o.KeepOriginalFolder, o.FolderPermissions, o.FilePermissions,
		o.Encoder, o.EncoderPath, o.Bitrate, o.EncoderOutputFormat, o.EncoderVBRCBR,
		o.EncoderQuality, o.EncoderMaxThreads, o.EncoderLossless,
		o.NtfyTopic, o.NtfyTimeout, o.NotifyOnSnatch, o.NotifyOnProcessed, o.NotifyOnUnprocessed,
	}
}

// Register adds every option to the registry. CONFIG_VERSION is internal:
// read-only and hidden from settings views.
func (o *Options) Register(reg *Registry) error {
	o.ConfigVersion.SetReadOnly(true)
	o.ConfigVersion.SetVisible(false)
	return reg.Register(o.Entries()...)
}

// Settings is a typed snapshot of the catalog. Consumers take the pieces they
// need instead of holding on to live options.
type Settings struct {
	General     GeneralSettings
	Search      SearchSettings
	Torrent     TorrentSettings
	Usenet      UsenetSettings
	PostProcess PostProcessSettings
	Encoder     EncoderSettings
	Notify      NotifySettings
}

// GeneralSettings covers process-wide values.
type GeneralSettings struct {
	DataDir      string `validate:"required"`
	LogLevel     string `validate:"oneof=debug info warn error"`
	LogFormat    string `validate:"oneof=console json"`
	LogFile      bool
	ScanInterval int `validate:"gte=1"`
	// SearchInterval is in minutes; 0 disables the scheduled search.
	SearchInterval int `validate:"gte=0"`
	APIBind        string
	APIKey         string
	IncludeExtras  bool
	Extras         []string `validate:"unique"`
}

// SearchSettings drives provider result matching.
type SearchSettings struct {
	PreferredQuality      int   `validate:"min=0,max=3"`
	PreferredBitrate      int   `validate:"gte=0"`
	BitrateBuffer         []int `validate:"len=2,dive,gte=0"`
	AllowLosslessFallback bool
	IgnoredWords          []string
	RequiredWords         []string
	PreferredWords        []string
	IgnoreCleanReleases   bool
	PreferTorrents        int `validate:"min=0,max=2"`
	MaxSizeBytes          int64
}

// TorrentSettings configures the torznab indexer and torrent downloads.
type TorrentSettings struct {
	Enabled         bool
	Host            string `validate:"omitempty,url"`
	APIKey          string
	Categories      string
	NumberOfSeeders int `validate:"gte=0"`
	DownloadDir     string
	BlackholeDir    string
	KeepFiles       bool
}

// UsenetSettings configures the newznab indexer and usenet downloads.
type UsenetSettings struct {
	Enabled      bool
	Host         string `validate:"omitempty,url"`
	APIKey       string
	Categories   string
	DownloadDir  string
	BlackholeDir string
}

// PostProcessSettings gates each post-processing step.
type PostProcessSettings struct {
	MusicEncoder           bool
	EmbedAlbumArt          bool
	AddAlbumArt            bool
	AlbumArtFormat         string
	CleanupFiles           bool
	CorrectMetadata        bool
	EmbedLyrics            bool
	RenameFiles            bool
	MoveFiles              bool
	DestinationDir         string
	LosslessDestinationDir string
	FolderFormat           string `validate:"required"`
	FileFormat             string `validate:"required"`
	FileUnderscores        bool
	ReplaceExistingFolders bool
	KeepOriginalFolder     bool
	KeepTorrentFiles       bool
	FolderPermissions      string `validate:"required"`
	FilePermissions        string `validate:"required"`
}

// EncoderSettings configures the external audio encoder.
type EncoderSettings struct {
	Encoder      string `validate:"oneof=ffmpeg lame"`
	Path         string
	Bitrate      int    `validate:"gte=32,lte=320"`
	OutputFormat string `validate:"oneof=mp3 ogg m4a flac opus"`
	VBRCBR       string `validate:"oneof=cbr vbr"`
	Quality      int    `validate:"min=0,max=9"`
	MaxThreads   int    `validate:"gte=1"`
	// LosslessOnly re-encodes lossless input only.
	LosslessOnly bool
}

// NotifySettings configures ntfy notifications.
type NotifySettings struct {
	NtfyTopic     string `validate:"omitempty,url"`
	Timeout       int    `validate:"gte=0"`
	OnSnatch      bool
	OnProcessed   bool
	OnUnprocessed bool
}

// Snapshot reads every option into a Settings value. Paths are expanded.
func (o *Options) Snapshot() (Settings, error) {
	var s Settings
	r := reader{}

	s.General = GeneralSettings{
		DataDir:        r.path(o.DataDir),
		LogLevel:       strings.ToLower(strings.TrimSpace(r.str(o.LogLevel))),
		LogFormat:      strings.ToLower(strings.TrimSpace(r.str(o.LogFormat))),
		LogFile:        r.boolean(o.LogFile),
		ScanInterval:   r.integer(o.ScanInterval),
		SearchInterval: r.integer(o.SearchInterval),
		APIBind:        strings.TrimSpace(r.str(o.APIBind)),
		APIKey:         strings.TrimSpace(r.str(o.APIKey)),
		IncludeExtras:  r.boolean(o.IncludeExtras),
		Extras:         r.list(o.Extras),
	}

	s.Search = SearchSettings{
		PreferredQuality:      r.integer(o.PreferredQuality),
		PreferredBitrate:      r.integer(o.PreferredBitrate),
		BitrateBuffer:         r.ints(o.BitrateBuffer),
		AllowLosslessFallback: r.boolean(o.AllowLosslessFallback),
		IgnoredWords:          SplitList(r.str(o.IgnoredWords)),
		RequiredWords:         SplitList(r.str(o.RequiredWords)),
		PreferredWords:        SplitList(r.str(o.PreferredWords)),
		IgnoreCleanReleases:   r.boolean(o.IgnoreCleanReleases),
		PreferTorrents:        r.integer(o.PreferTorrents),
		MaxSizeBytes:          r.size(o.MaxSize),
	}

	s.Torrent = TorrentSettings{
		Enabled:         r.boolean(o.TorznabEnabled),
		Host:            strings.TrimSpace(r.str(o.TorznabHost)),
		APIKey:          strings.TrimSpace(r.str(o.TorznabAPIKey)),
		Categories:      strings.TrimSpace(r.str(o.TorznabCategories)),
		NumberOfSeeders: r.integer(o.NumberOfSeeders),
		DownloadDir:     r.path(o.TorrentDownloadDir),
		BlackholeDir:    r.path(o.TorrentBlackhole),
		KeepFiles:       r.boolean(o.KeepTorrentFiles),
	}

	s.Usenet = UsenetSettings{
		Enabled:      r.boolean(o.NewznabEnabled),
		Host:         strings.TrimSpace(r.str(o.NewznabHost)),
		APIKey:       strings.TrimSpace(r.str(o.NewznabAPIKey)),
		Categories:   strings.TrimSpace(r.str(o.NewznabCategories)),
		DownloadDir:  r.path(o.DownloadDir),
		BlackholeDir: r.path(o.Blackhole),
	}

	s.PostProcess = PostProcessSettings{
		MusicEncoder:           r.boolean(o.MusicEncoder),
		EmbedAlbumArt:          r.boolean(o.EmbedAlbumArt),
		AddAlbumArt:            r.boolean(o.AddAlbumArt),
		AlbumArtFormat:         strings.TrimSpace(r.str(o.AlbumArtFormat)),
		CleanupFiles:           r.boolean(o.CleanupFiles),
		CorrectMetadata:        r.boolean(o.CorrectMetadata),
		EmbedLyrics:            r.boolean(o.EmbedLyrics),
		RenameFiles:            r.boolean(o.RenameFiles),
		MoveFiles:              r.boolean(o.MoveFiles),
		DestinationDir:         r.path(o.DestinationDir),
		LosslessDestinationDir: r.path(o.LosslessDestinationDir),
		FolderFormat:           strings.TrimSpace(r.str(o.FolderFormat)),
		FileFormat:             strings.TrimSpace(r.str(o.FileFormat)),
		FileUnderscores:        r.boolean(o.FileUnderscores),
		ReplaceExistingFolders: r.boolean(o.ReplaceExistingFolders),
		KeepOriginalFolder:     r.boolean(o.KeepOriginalFolder),
		KeepTorrentFiles:       r.boolean(o.KeepTorrentFiles),
		FolderPermissions:      strings.TrimSpace(r.str(o.FolderPermissions)),
		FilePermissions:        strings.TrimSpace(r.str(o.FilePermissions)),
	}

	s.Encoder = EncoderSettings{
		Encoder:      strings.ToLower(strings.TrimSpace(r.str(o.Encoder))),
		Path:         r.path(o.EncoderPath),
		Bitrate:      r.integer(o.Bitrate),
		OutputFormat: strings.ToLower(strings.TrimSpace(r.str(o.EncoderOutputFormat))),
		VBRCBR:       strings.ToLower(strings.TrimSpace(r.str(o.EncoderVBRCBR))),
		Quality:      r.integer(o.EncoderQuality),
		MaxThreads:   r.integer(o.EncoderMaxThreads),
		LosslessOnly: r.boolean(o.EncoderLossless),
	}

	s.Notify = NotifySettings{
		NtfyTopic:     strings.TrimSpace(r.str(o.NtfyTopic)),
		Timeout:       r.integer(o.NtfyTimeout),
		OnSnatch:      r.boolean(o.NotifyOnSnatch),
		OnProcessed:   r.boolean(o.NotifyOnProcessed),
		OnUnprocessed: r.boolean(o.NotifyOnUnprocessed),
	}

	if r.err != nil {
		return Settings{}, r.err
	}
	return s, nil
}

// reader collects the first error while reading many options in a row.
type reader struct {
	err error
}

func (r *reader) str(opt *Option[string]) string {
	value, err := opt.Get()
	r.keep(err)
	return value
}

func (r *reader) boolean(opt *Option[bool]) bool {
	value, err := opt.Get()
	r.keep(err)
	return value
}

func (r *reader) integer(opt *Option[int]) int {
	value, err := opt.Get()
	r.keep(err)
	return value
}

func (r *reader) list(opt *Option[[]string]) []string {
	value, err := opt.Get()
	r.keep(err)
	return value
}

func (r *reader) ints(opt *Option[[]int]) []int {
	value, err := opt.Get()
	r.keep(err)
	return value
}

func (r *reader) path(opt *Option[Path]) string {
	value, err := opt.Get()
	r.keep(err)
	if value == "" {
		return ""
	}
	expanded, err := ExpandPath(string(value))
	if err != nil {
		r.keep(fmt.Errorf("%s: %w", opt.AppKey(), err))
		return string(value)
	}
	return expanded
}

// size parses human readable sizes such as "700 MB". Unparseable values mean
// no limit.
func (r *reader) size(opt *Option[string]) int64 {
	text := strings.TrimSpace(r.str(opt))
	if text == "" || text == "0" {
		return 0
	}
	n, err := humanize.ParseBytes(text)
	if err != nil {
		return 0
	}
	return int64(n)
}

func (r *reader) keep(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}
