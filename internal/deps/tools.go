package deps

import "ytscribe/internal/config"

// DownloadRequirements lists the programs the download stage shells out to.
func DownloadRequirements(cfg config.Download) []Requirement {
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YTDLPBinary,
			Description: "Required to resolve and download YouTube audio",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary,
			Description: "Required by yt-dlp for audio extraction",
			VersionArgs: []string{"-version"},
		},
	}
}
