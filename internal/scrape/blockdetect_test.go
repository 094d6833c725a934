package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"cloudflare ray", 403, http.Header{"Cf-Ray": {"abc"}}, "", BlockCloudflare},
		{"cloudflare server", 503, http.Header{"Server": {"cloudflare"}}, "", BlockCloudflare},
		{"akamai server", 403, http.Header{"Server": {"AkamaiGHost"}}, "", BlockAkamai},
		{"akamai body", 200, http.Header{}, "<h1>Access Denied</h1> Reference #18.abc", BlockAkamai},
		{"perimeterx", 403, http.Header{}, `<div id="px-captcha"></div>`, BlockPerimeterX},
		{"press and hold", 200, http.Header{}, "Press & Hold to confirm you are a human", BlockPerimeterX},
		{"captcha", 200, http.Header{}, "please solve the reCAPTCHA", BlockCaptcha},
		{"js shell", 200, http.Header{}, "<noscript>Enable JavaScript</noscript>", BlockJSShell},
		{"clean", 200, http.Header{}, "<html><body>" + strings.Repeat("listing ", 400) + "<noscript>javascript</noscript></body></html>", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, bt := DetectBlock(&http.Response{StatusCode: tt.status, Header: tt.header}, []byte(tt.body))
			assert.Equal(t, tt.want != BlockNone, blocked)
			assert.Equal(t, tt.want, bt)
		})
	}
}

func TestDetectBlock_NilResponse(t *testing.T) {
	blocked, bt := DetectBlock(nil, []byte("captcha"))
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}
