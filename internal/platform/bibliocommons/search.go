package bibliocommons

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const maxEditions = 10

type briefInfo struct {
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	Authors         []string `json:"authors"`
	Format          string   `json:"format"`
	PublicationDate string   `json:"publicationDate"`
	PrimaryLanguage string   `json:"primaryLanguage"`
	SeriesTitle     string   `json:"seriesTitle"`
	ISBNs           []string `json:"isbns"`
}

type searchBib struct {
	BriefInfo    briefInfo `json:"briefInfo"`
	Availability struct {
		Status          string `json:"status"`
		AvailableCopies int    `json:"availableCopies"`
		TotalCopies     int    `json:"totalCopies"`
		HeldCopies      int    `json:"heldCopies"`
	} `json:"availability"`
}

type searchResponse struct {
	CatalogSearch struct {
		Results []struct {
			Representative string `json:"representative"`
		} `json:"results"`
	} `json:"catalogSearch"`
	Entities struct {
		Bibs map[string]searchBib `json:"bibs"`
	} `json:"entities"`
}

type availabilityResponse struct {
	Entities struct {
		Availabilities map[string]struct {
			HeldCopies  int `json:"heldCopies"`
			TotalCopies int `json:"totalCopies"`
		} `json:"availabilities"`
		BibItems map[string]struct {
			DueDate string `json:"dueDate"`
			Branch  struct {
				Name string `json:"name"`
				Code string `json:"code"`
			} `json:"branch"`
			Availability struct {
				Status string `json:"status"`
			} `json:"availability"`
		} `json:"bibItems"`
	} `json:"entities"`
}

// SearchByISBN looks the catalog up by ISBN. Absence is ErrNotFound.
func (c *Client) SearchByISBN(ctx context.Context, isbn string) (*CatalogRecord, error) {
	if isbn == "" {
		return nil, ErrNotFound
	}
	return c.Search(ctx, isbn)
}

// SearchByTitleAuthor looks the catalog up by a free-text title+author query.
func (c *Client) SearchByTitleAuthor(ctx context.Context, title, author string) (*CatalogRecord, error) {
	return c.Search(ctx, strings.TrimSpace(title+" "+author))
}

// Search runs a smart search and picks the single best matching edition:
// the English physical book with the most copies, falling back to the first
// English hit in any format, then to the raw first hit.
func (c *Client) Search(ctx context.Context, query string) (*CatalogRecord, error) {
	resp, err := c.searchBibs(ctx, query, 5)
	if err != nil {
		return nil, err
	}

	ids := orderedBibIDs(resp)
	if len(ids) == 0 {
		return nil, ErrNotFound
	}

	bestID := ""
	bestCopies := -1
	for _, id := range ids {
		bib := resp.Entities.Bibs[id]
		if !isEnglishBook(bib.BriefInfo) {
			continue
		}
		if bib.Availability.TotalCopies > bestCopies {
			bestID = id
			bestCopies = bib.Availability.TotalCopies
		}
	}
	if bestID == "" {
		for _, id := range ids {
			if isEnglish(resp.Entities.Bibs[id].BriefInfo) {
				bestID = id
				break
			}
		}
	}
	if bestID == "" {
		bestID = ids[0]
	}

	record := c.recordFromBib(bestID, resp.Entities.Bibs[bestID])
	// Branch check is enrichment; failures degrade to false.
	record.BranchAvailable = c.BranchAvailable(ctx, bestID, c.branchName)
	return &record, nil
}

// SearchEditions returns up to 10 English physical editions of a work,
// available-first then total copies descending, each decorated with
// branch-level detail and a best-effort translator name.
func (c *Client) SearchEditions(ctx context.Context, query string) ([]Edition, error) {
	resp, err := c.searchBibs(ctx, query, 20)
	if err != nil {
		return nil, err
	}

	var editions []Edition
	for _, id := range orderedBibIDs(resp) {
		bib := resp.Entities.Bibs[id]
		if !isEnglishBook(bib.BriefInfo) {
			continue
		}
		editions = append(editions, Edition{
			CatalogRecord: c.recordFromBib(id, bib),
			Subtitle:      bib.BriefInfo.Subtitle,
			Year:          bib.BriefInfo.PublicationDate,
			Series:        bib.BriefInfo.SeriesTitle,
		})
	}

	sort.SliceStable(editions, func(i, j int) bool {
		if (editions[i].Status == StatusAvailable) != (editions[j].Status == StatusAvailable) {
			return editions[i].Status == StatusAvailable
		}
		return editions[i].TotalCopies > editions[j].TotalCopies
	})
	if len(editions) > maxEditions {
		editions = editions[:maxEditions]
	}

	for i := range editions {
		c.decorateEdition(ctx, &editions[i], isbnFor(resp.Entities.Bibs[editions[i].BibID].BriefInfo))
	}
	return editions, nil
}

// decorateEdition attaches branch statuses and a translator name. All
// lookups here are best effort and never fail the edition.
func (c *Client) decorateEdition(ctx context.Context, ed *Edition, isbn string) {
	if avail, err := c.fetchAvailability(ctx, ed.BibID); err == nil {
		for _, item := range avail.Entities.BibItems {
			ed.Branches = append(ed.Branches, BranchStatus{
				Branch: item.Branch.Name,
				Status: item.Availability.Status,
			})
			if item.Branch.Name == c.branchName && item.Availability.Status == StatusAvailable {
				ed.BranchAvailable = true
			}
		}
		sort.Slice(ed.Branches, func(i, j int) bool { return ed.Branches[i].Branch < ed.Branches[j].Branch })
	}

	if c.translators != nil && isbn != "" {
		if name, err := c.translators.Translator(ctx, isbn); err == nil {
			ed.Translator = name
		}
	}
}

// BranchAvailable reports whether any copy at the named branch is available
// right now. Errors degrade to false.
func (c *Client) BranchAvailable(ctx context.Context, bibID, branchName string) bool {
	avail, err := c.fetchAvailability(ctx, bibID)
	if err != nil {
		return false
	}
	for _, item := range avail.Entities.BibItems {
		if item.Branch.Name == branchName && item.Availability.Status == StatusAvailable {
			return true
		}
	}
	return false
}

func (c *Client) searchBibs(ctx context.Context, query string, limit int) (*searchResponse, error) {
	u := fmt.Sprintf("%s/bibs/search?query=%s&searchType=smart&limit=%d&locale=en-US",
		c.gatewayURL, url.QueryEscape(query), limit)

	var resp searchResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	return &resp, nil
}

func (c *Client) fetchAvailability(ctx context.Context, bibID string) (*availabilityResponse, error) {
	u := fmt.Sprintf("%s/bibs/%s/availability?locale=en-US", c.gatewayURL, bibID)

	var resp availabilityResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("availability %s: %w", bibID, err)
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, u string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func (c *Client) recordFromBib(bibID string, bib searchBib) CatalogRecord {
	status := StatusUnavailable
	if bib.Availability.AvailableCopies > 0 {
		status = StatusAvailable
	}
	return CatalogRecord{
		BibID:           bibID,
		Title:           bib.BriefInfo.Title,
		Author:          strings.Join(bib.BriefInfo.Authors, ", "),
		Format:          bib.BriefInfo.Format,
		Status:          status,
		AvailableCopies: bib.Availability.AvailableCopies,
		TotalCopies:     bib.Availability.TotalCopies,
		HeldCopies:      bib.Availability.HeldCopies,
		CatalogURL:      fmt.Sprintf("%s/v2/record/%s", c.baseURL, bibID),
	}
}

// orderedBibIDs returns bib ids in result order, falling back to any bibs
// the result list does not mention.
func orderedBibIDs(resp *searchResponse) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range resp.CatalogSearch.Results {
		if bib, ok := resp.Entities.Bibs[r.Representative]; ok && bib.BriefInfo.Title != "" && !seen[r.Representative] {
			ids = append(ids, r.Representative)
			seen[r.Representative] = true
		}
	}
	var rest []string
	for id := range resp.Entities.Bibs {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

func isEnglishBook(info briefInfo) bool {
	return info.Format == "BK" && isEnglish(info)
}

func isEnglish(info briefInfo) bool {
	lang := strings.ToLower(info.PrimaryLanguage)
	return lang == "" || lang == "english" || lang == "eng"
}

func isbnFor(info briefInfo) string {
	for _, isbn := range info.ISBNs {
		if len(isbn) == 13 {
			return isbn
		}
	}
	if len(info.ISBNs) > 0 {
		return info.ISBNs[0]
	}
	return ""
}
