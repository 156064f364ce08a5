package api

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// user-facing texts, surfaced verbatim in API error responses
	ErrUnsupportedVideoURL = errors.New("Unsupported video URL. Supported: YouTube, Twitch, Dailymotion, .m3u8, .mp4")
	ErrInvalidVideoURL     = errors.New("Invalid URL format")
)

var (
	youtubeRegexp     = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/|live/)|youtu\.be/)([\w-]+)`)
	twitchRegexp      = regexp.MustCompile(`twitch\.tv/(?:videos/(\d+)|(\w+))`)
	dailymotionRegexp = regexp.MustCompile(`dailymotion\.com/video/(\w+)`)

	directFileRegexp = regexp.MustCompile(`\.(mp4|webm|ogg)$`)
)

// classifyVideoURL validates a video URL and resolves the playable form:
// raw HLS playlists and direct files pass through, while provider links are
// rewritten to their embed URL. domain is handed to providers that require
// the embedding page's domain (Twitch).
func classifyVideoURL(rawURL, domain string) (videoType, embedURL string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", "", ErrInvalidVideoURL
	}

	if strings.HasSuffix(parsed.Path, ".m3u8") {
		return "hls", rawURL, nil
	}

	if directFileRegexp.MatchString(parsed.Path) {
		return "direct", rawURL, nil
	}

	if m := youtubeRegexp.FindStringSubmatch(rawURL); m != nil {
		return "iframe", fmt.Sprintf("https://www.youtube.com/embed/%s?autoplay=1&enablejsapi=1", m[1]), nil
	}

	if m := twitchRegexp.FindStringSubmatch(rawURL); m != nil {
		if m[1] != "" {
			return "iframe", fmt.Sprintf("https://player.twitch.tv/?video=%s&parent=%s", m[1], domain), nil
		}
		return "iframe", fmt.Sprintf("https://player.twitch.tv/?channel=%s&parent=%s", m[2], domain), nil
	}

	if m := dailymotionRegexp.FindStringSubmatch(rawURL); m != nil {
		return "iframe", fmt.Sprintf("https://www.dailymotion.com/embed/video/%s", m[1]), nil
	}

	return "", "", ErrUnsupportedVideoURL
}
