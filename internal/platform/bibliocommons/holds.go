package bibliocommons

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// GetHolds lists the patron's current holds. An expired session is detected
// by the login form showing up in place of the holds page; the call then
// refreshes the session and refetches once.
func (c *Client) GetHolds(ctx context.Context, creds Credentials) ([]Hold, error) {
	var html string
	err := c.withAuthRetry(ctx, creds, func(session *Session) error {
		page, err := c.fetchHoldsPage(ctx, session)
		if err != nil {
			return err
		}
		if isLoginPage(page) {
			return &AuthError{}
		}
		html = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.buildHolds(ctx, html), nil
}

// PlaceHold places a hold on a bib for pickup at branchID (the configured
// default when empty). Vendor rejections come back as a failed HoldResult
// with the vendor's message, not as an error.
func (c *Client) PlaceHold(ctx context.Context, bibID string, creds Credentials, branchID string) (HoldResult, error) {
	if branchID == "" {
		branchID = c.defaultBranchID
	}

	accountID, _ := strconv.Atoi(creds.AccountID)
	payload := map[string]any{
		"metadataId":             bibID,
		"materialType":           "PHYSICAL",
		"accountId":              accountID,
		"enableSingleClickHolds": false,
		"materialParams": map[string]any{
			"branchId":           branchID,
			"expiryDate":         nil,
			"errorMessageLocale": "en-US",
		},
	}

	err := c.withAuthRetry(ctx, creds, func(session *Session) error {
		return c.holdsRequest(ctx, session, http.MethodPost, payload, "hold failed")
	})
	return holdResult(err, "Hold placed successfully")
}

// CancelHold cancels an existing hold by its hold id and bib id.
func (c *Client) CancelHold(ctx context.Context, holdID, bibID string, creds Credentials) (HoldResult, error) {
	accountID, _ := strconv.Atoi(creds.AccountID)
	payload := map[string]any{
		"accountId":   accountID,
		"holdIds":     []string{holdID},
		"metadataIds": []string{bibID},
	}

	err := c.withAuthRetry(ctx, creds, func(session *Session) error {
		return c.holdsRequest(ctx, session, http.MethodDelete, payload, "cancel failed")
	})
	return holdResult(err, "Hold cancelled successfully")
}

// holdResult folds the error taxonomy into the user-facing shape: vendor
// rejections become {false, message}, everything else stays an error.
func holdResult(err error, successMsg string) (HoldResult, error) {
	if err == nil {
		return HoldResult{Success: true, Message: successMsg}, nil
	}
	var vendorErr *VendorError
	if errors.As(err, &vendorErr) {
		return HoldResult{Success: false, Message: vendorErr.Message}, nil
	}
	return HoldResult{}, err
}

func (c *Client) fetchHoldsPage(ctx context.Context, session *Session) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/holds", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", session.Cookies)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// holdsRequest issues an authenticated gateway call against the holds
// endpoint and maps non-success responses onto the error taxonomy.
func (c *Client) holdsRequest(ctx context.Context, session *Session, method string, payload any, fallback string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.gatewayURL+"/holds?locale=en-US", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", session.Cookies)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-access-token", session.AccessToken)
	req.Header.Set("x-session-id", session.SessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Status: resp.StatusCode}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return &VendorError{
			Status:  resp.StatusCode,
			Message: vendorMessage(respBody, resp.StatusCode, fallback),
		}
	}
}

// vendorMessage digs a human-readable message out of the vendor's error
// payload: an error-list entry's message or detail, then a top-level
// message, then a generic fallback with the HTTP status.
func vendorMessage(body []byte, status int, fallback string) string {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"errors"`
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Errors) > 0 {
			if payload.Errors[0].Message != "" {
				return payload.Errors[0].Message
			}
			if payload.Errors[0].Detail != "" {
				return payload.Errors[0].Detail
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
	}
	return fmt.Sprintf("%s (%d)", fallback, status)
}

// buildHolds converts the holds page payload into Hold values. Holds that
// are not yet available get a concurrent availability lookup to compute a
// richer status line (queue size, copies, due date).
func (c *Client) buildHolds(ctx context.Context, html string) []Hold {
	data, ok := parseHoldsPage(html)
	if !ok {
		return []Hold{}
	}

	availability := c.fetchPendingAvailability(ctx, data)

	holds := make([]Hold, 0, len(data.Entities.Holds))
	for _, entry := range data.Entities.Holds {
		info := data.Entities.Bibs[entry.MetadataID].BriefInfo
		status, statusText := normalizeHoldStatus(entry.Status)
		if status == HoldStatusUnknown && entry.HoldText != "" {
			// The portal's own wording beats the raw status token.
			statusText = entry.HoldText
		}

		hold := Hold{
			HoldID:     entry.HoldsID,
			BibID:      entry.MetadataID,
			Title:      firstNonEmpty(info.Title, entry.BibTitle, "Unknown"),
			Format:     firstNonEmpty(info.Format, "Book"),
			Year:       info.PublicationDate,
			Status:     status,
			StatusText: statusText,
			PickupBy:   entry.PickupByDate,
		}
		if len(info.Authors) > 0 {
			hold.Author = info.Authors[0]
		}

		if status == HoldStatusNotYetAvailable {
			if avail := availability[entry.MetadataID]; avail != nil {
				enrichPendingHold(&hold, avail)
			}
		}
		holds = append(holds, hold)
	}
	return holds
}

// fetchPendingAvailability fans out availability lookups for every hold
// still in the queue. Individual failures just leave that hold undecorated.
func (c *Client) fetchPendingAvailability(ctx context.Context, data *holdsPageData) map[string]*availabilityResponse {
	var pending []string
	for _, entry := range data.Entities.Holds {
		if strings.ToLower(entry.Status) == HoldStatusNotYetAvailable {
			pending = append(pending, entry.MetadataID)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	results := make(map[string]*availabilityResponse, len(pending))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, bibID := range pending {
		wg.Add(1)
		go func(bibID string) {
			defer wg.Done()
			avail, err := c.fetchAvailability(ctx, bibID)
			if err != nil {
				return
			}
			mu.Lock()
			results[bibID] = avail
			mu.Unlock()
		}(bibID)
	}
	wg.Wait()
	return results
}

func enrichPendingHold(hold *Hold, avail *availabilityResponse) {
	var parts []string
	for _, a := range avail.Entities.Availabilities {
		if a.HeldCopies > 1 {
			held := a.HeldCopies
			hold.TotalHolds = &held
			parts = append(parts, fmt.Sprintf("%d holds", held))
		}
		if a.TotalCopies > 0 {
			noun := "copies"
			if a.TotalCopies == 1 {
				noun = "copy"
			}
			parts = append(parts, fmt.Sprintf("%d %s", a.TotalCopies, noun))
		}
		break
	}
	for _, item := range avail.Entities.BibItems {
		if item.DueDate == "" {
			continue
		}
		hold.DueDate = item.DueDate
		if due, err := time.Parse("2006-01-02", item.DueDate); err == nil {
			parts = append(parts, "due "+due.Format("Jan 2"))
		}
		break
	}
	if len(parts) > 0 {
		hold.StatusText = strings.Join(parts, ", ")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
