package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceParams derives coarse device context from a User-Agent string for
// event enrichment. Only class-level signals (OS family, browser family,
// form factor) are extracted; nothing here identifies a device or a user.
func DeviceParams(userAgentString string) map[string]any {
	if userAgentString == "" {
		return nil
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()

	formFactor := "desktop"
	if ua.Mobile() {
		formFactor = "mobile"
	}
	if ua.Bot() {
		formFactor = "bot"
	}

	params := map[string]any{
		"device_class": formFactor,
	}
	if os := strings.TrimSpace(ua.OS()); os != "" {
		params["device_os"] = os
	}
	if browser = strings.ToLower(strings.TrimSpace(browser)); browser != "" {
		params["device_browser"] = browser
	}
	return params
}
