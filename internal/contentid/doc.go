// Package contentid derives the stable content identifier ytscribe uses as the
// cache key: the 11-character YouTube video ID.
//
// The same video is reachable through many URL forms (watch, youtu.be,
// shorts, embed, live, music and mobile hosts). Keying the cache index by the
// raw URL would under-deduplicate, so every form is reduced to the platform
// ID. Inputs that cannot be parsed locally are resolved through yt-dlp by the
// caller.
package contentid
