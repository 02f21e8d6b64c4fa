package configuration

import (
	"fmt"
	"os"
	"strings"
)

const maxNumberedEnv = 32

// GetYouTubeKeys merges configured keys with YOUTUBE_API_KEYS (comma
// separated) and YOUTUBE_API_KEY_1..N. Empty and duplicate entries are dropped.
func GetYouTubeKeys(configured []string) []string {
	return collect(configured, "YOUTUBE_API_KEYS", "YOUTUBE_API_KEY_")
}

// GetTranscriptProxies merges configured proxies with TRANSCRIPT_PROXIES and
// TRANSCRIPT_PROXY_1..N.
func GetTranscriptProxies(configured []string) []string {
	return collect(configured, "TRANSCRIPT_PROXIES", "TRANSCRIPT_PROXY_")
}

func collect(configured []string, listEnv, prefix string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || strings.HasPrefix(v, "YOUR_") {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	for _, v := range configured {
		add(v)
	}
	for _, v := range strings.Split(os.Getenv(listEnv), ",") {
		add(v)
	}
	// gaps are allowed, e.g. _1 and _3 set but _2 empty
	for i := 1; i <= maxNumberedEnv; i++ {
		add(os.Getenv(fmt.Sprintf("%s%d", prefix, i)))
	}
	return out
}

// getConfigValue gets value from the environment first, then config, then default.
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
