package discover

import "strings"

// classifyRule maps matched path or banner keywords to a manufacturer tag.
// Rules are evaluated in order: vendor-specific path matches first, banner
// keywords after, port heuristics last.
type classifyRule struct {
	manufacturer string
	pathKeywords []string
	bannerWords  []string
	ports        []int
}

var classifyRules = []classifyRule{
	{manufacturer: "axis", pathKeywords: []string{"axis-cgi"}, bannerWords: []string{"axis"}},
	{manufacturer: "dahua", pathKeywords: []string{"cam/realmonitor"}, bannerWords: []string{"dahua", "dh_web"}},
	{manufacturer: "hikvision", pathKeywords: []string{"isapi", "streaming/channels"}, bannerWords: []string{"hikvision", "dnvrs-webs", "dvrdvs-webs"}},
	{manufacturer: "foscam", pathKeywords: []string{"videostream.cgi"}, bannerWords: []string{"foscam", "netwave"}},
	{manufacturer: "generic-cgi", pathKeywords: []string{"video.cgi", "mjpg/video"}},
	{manufacturer: "generic-rtsp", ports: []int{554, 8554}},
}

// Classify tags a validated stream with a likely vendor. Pure and
// deterministic: same inputs, same tag.
func Classify(path, banner string, port int) string {
	lowerPath := strings.ToLower(path)
	lowerBanner := strings.ToLower(banner)

	// A path match always outranks a banner match, which outranks the port
	// heuristic, regardless of table position.
	for _, rule := range classifyRules {
		for _, keyword := range rule.pathKeywords {
			if strings.Contains(lowerPath, keyword) {
				return rule.manufacturer
			}
		}
	}
	for _, rule := range classifyRules {
		for _, word := range rule.bannerWords {
			if lowerBanner != "" && strings.Contains(lowerBanner, word) {
				return rule.manufacturer
			}
		}
	}
	for _, rule := range classifyRules {
		for _, p := range rule.ports {
			if p == port {
				return rule.manufacturer
			}
		}
	}
	return "unknown"
}
