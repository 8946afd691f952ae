package bibliocommons

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The portal embeds everything we scrape in two stable shapes: the login
// form's authenticity token and a JSON blob inside an isomorphic-render
// script tag. Markup changes land here and nowhere else.

var (
	authenticityTokenRe = regexp.MustCompile(`authenticity_token.*?value="([^"]+)"`)
	isoPayloadRe        = regexp.MustCompile(`(?s)<script[^>]*type="application/json"[^>]*data-iso-key="_0"[^>]*>(.*?)</script>`)
)

func extractAuthenticityToken(html string) string {
	m := authenticityTokenRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return m[1]
}

// isLoginPage heuristically detects that the portal served the login form
// instead of authenticated content.
func isLoginPage(html string) bool {
	return strings.Contains(html, `id="user_pin"`) || strings.Contains(html, "Sign In")
}

type holdsPageData struct {
	Entities struct {
		Accounts map[string]json.RawMessage `json:"accounts"`
		Holds    map[string]holdEntry       `json:"holds"`
		Bibs     map[string]holdBib         `json:"bibs"`
	} `json:"entities"`
}

type holdEntry struct {
	HoldsID      string `json:"holdsId"`
	MetadataID   string `json:"metadataId"`
	Status       string `json:"status"`
	BibTitle     string `json:"bibTitle"`
	HoldText     string `json:"holdText"`
	PickupByDate string `json:"pickupByDate"`
}

type holdBib struct {
	BriefInfo briefInfo `json:"briefInfo"`
}

// parseHoldsPage pulls the embedded JSON state out of the holds listing
// HTML. A page without the payload parses as empty, not as an error.
func parseHoldsPage(html string) (*holdsPageData, bool) {
	m := isoPayloadRe.FindStringSubmatch(html)
	if m == nil {
		return nil, false
	}
	var data holdsPageData
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return nil, false
	}
	return &data, true
}

// extractAccountID returns the first account id on the holds page, or "".
func extractAccountID(html string) string {
	data, ok := parseHoldsPage(html)
	if !ok {
		return ""
	}
	for id := range data.Entities.Accounts {
		return id
	}
	return ""
}

// normalizeHoldStatus maps the vendor's status strings onto the closed
// four-value set, keeping the raw string as display text for anything
// unrecognized. The lossiness is deliberate.
func normalizeHoldStatus(raw string) (status, text string) {
	switch strings.ToLower(raw) {
	case "in_transit":
		return HoldStatusInTransit, "In Transit"
	case "not_yet_available":
		return HoldStatusNotYetAvailable, "Not Ready"
	case "ready", "available", "ready_for_pickup":
		return HoldStatusReady, "Ready for Pickup"
	default:
		return HoldStatusUnknown, raw
	}
}
