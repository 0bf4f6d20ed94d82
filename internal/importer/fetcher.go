package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// SourceArticle is the shape of one item in the help-center feed. The
// body arrives as markdown and is converted before caching.
type SourceArticle struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	Status      string `json:"status"`
	CategoryID  int    `json:"category_id"`
}

type pageResponse struct {
	Payload []SourceArticle `json:"payload"`
}

// Fetcher pages through the help-center article feed.
type Fetcher struct {
	client      *resty.Client
	baseURL     string
	accountID   string
	portalSlug  string
	accessToken string
}

func NewFetcher(baseURL, accountID, portalSlug, accessToken string) *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second),
		baseURL:     baseURL,
		accountID:   accountID,
		portalSlug:  portalSlug,
		accessToken: accessToken,
	}
}

// FetchPage retrieves one page of the feed. An empty payload marks the
// end of the feed.
func (f *Fetcher) FetchPage(ctx context.Context, page int) ([]SourceArticle, error) {
	url := fmt.Sprintf("%s/accounts/%s/portals/%s/articles", f.baseURL, f.accountID, f.portalSlug)

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("api_access_token", f.accessToken).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("page", fmt.Sprintf("%d", page)).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d for page %d", resp.StatusCode(), page)
	}

	var body pageResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse page %d: %w", page, err)
	}
	return body.Payload, nil
}
