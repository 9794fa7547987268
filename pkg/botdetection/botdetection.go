package botdetection

import "strings"

// signatures are lowercase user agent fragments of crawlers, mail security
// gateways and scripted HTTP clients. Gateways fetch every image of an
// incoming message, so their hits are not opens.
var signatures = []string{
	"bot",
	"crawler",
	"spider",
	"scanner",
	"linkcheck",
	"headlesschrome",
	"phantomjs",
	"selenium",
	"safelinks",
	"proofpoint",
	"mimecast",
	"barracuda",
	"forcepoint",
	"cisco ironport",
	"symantec",
	"trend micro",
	"sophos",
	"urldefense",
	"linkprotect",
	"urlscan",
	"emailsecurity",
	"python-requests",
	"curl/",
	"wget/",
	"go-http-client",
	"okhttp",
	"postman",
}

// proxies fetch images on behalf of a real reader and count as human
var proxies = []string{
	"googleimageproxy",
	"yahoomailproxy",
}

// IsAutomated reports whether a tracking hit came from software rather than
// a person opening the message. A missing user agent counts as automated.
func IsAutomated(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}

	for _, p := range proxies {
		if strings.Contains(ua, p) {
			return false
		}
	}

	for _, s := range signatures {
		if strings.Contains(ua, s) {
			return true
		}
	}
	return false
}
