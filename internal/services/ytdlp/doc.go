// Package ytdlp mediates access to the yt-dlp CLI used to expand playlists,
// resolve video metadata, and extract audio.
//
// Audio is extracted with ffmpeg (through yt-dlp's post-processor) into the
// audio cache as "<videoID>.<format>"; an existing cached file is reused.
// Downloads are retried a fixed number of times with a delay between
// attempts, and every failure surfaces as services.ErrDownload.
//
// Command execution goes through the Executor interface so tests can replay
// canned yt-dlp output without the binary installed.
package ytdlp
