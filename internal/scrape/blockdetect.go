package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot wall detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockPerimeterX BlockType = "perimeterx"
	BlockAkamai     BlockType = "akamai"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// DetectBlock checks a listing page response for an anti-bot wall. Listing
// sites front their pages with PerimeterX (Zillow, Realtor.com) or Akamai,
// both of which answer 403 with a challenge body.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
		if strings.Contains(strings.ToLower(resp.Header.Get("server")), "akamai") {
			return true, BlockAkamai
		}
	}

	lower := strings.ToLower(string(body))

	switch {
	case strings.Contains(lower, "px-captcha") || strings.Contains(lower, "_pxappid") ||
		strings.Contains(lower, "press & hold"):
		return true, BlockPerimeterX
	case strings.Contains(lower, "checking your browser") || strings.Contains(lower, "cf-browser-verification"):
		return true, BlockCloudflare
	case strings.Contains(lower, "access denied") && strings.Contains(lower, "reference #"):
		return true, BlockAkamai
	case strings.Contains(lower, "captcha"):
		return true, BlockCaptcha
	}

	// Client-rendered shell with nothing to parse.
	if len(body) < 2000 && strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
		return true, BlockJSShell
	}

	return false, BlockNone
}
