package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockRobotCheck BlockType = "robot_check"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// captchaBodyLimit bounds the generic captcha check. Full product pages are
// far larger and may mention captcha in unrelated scripts.
const captchaBodyLimit = 20000

var robotCheckMarkers = []string{
	"/errors/validatecaptcha",
	"enter the characters you see below",
	"to discuss automated access to amazon data",
	"<title>robot check</title>",
}

// DetectBlock checks a response for signs of anti-bot protection. A blocked
// page must not be handed to the extractor even when its status is 200.
func DetectBlock(status int, header http.Header, body []byte) (bool, BlockType) {
	if status == 0 && header == nil && body == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if header.Get("cf-ray") != "" || header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if strings.EqualFold(header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	for _, m := range robotCheckMarkers {
		if strings.Contains(lower, m) {
			return true, BlockRobotCheck
		}
	}

	if len(body) < captchaBodyLimit &&
		(strings.Contains(lower, "captcha") ||
			strings.Contains(lower, "recaptcha") ||
			strings.Contains(lower, "hcaptcha")) {
		return true, BlockCaptcha
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, "meta http-equiv=\"refresh\"") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
