package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"autotrans/internal/config"
	"autotrans/internal/logging"
	"autotrans/internal/services"
)

// HTTPDoer describes the HTTP client used by the catalog client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the HTTP client.
type Option func(*HTTPClient)

// WithHTTPDoer injects a custom HTTP client (primarily for tests).
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(c *HTTPClient) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logging.NewComponentLogger(logger, "catalog")
	}
}

// WithRateLimit overrides the request pacing.
func WithRateLimit(calls int, period time.Duration) Option {
	return func(c *HTTPClient) {
		c.limiter = newLimiter(calls, period)
	}
}

// HTTPClient implements Client against the catalog's ajax.php API.
type HTTPClient struct {
	endpoint    string
	apiKey      string
	announceTpl string
	pageSize    int
	client      HTTPDoer
	limiter     *rate.Limiter
	logger      *slog.Logger

	userID   int64
	username string
	announce string
}

// NewHTTPClient builds a client from configuration. Call Login before use.
func NewHTTPClient(cfg *config.Config, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint:    cfg.Catalog.Endpoint,
		apiKey:      cfg.Catalog.APIKey,
		announceTpl: cfg.Catalog.AnnounceURL,
		pageSize:    cfg.Catalog.PageSize,
		client:      &http.Client{Timeout: cfg.RequestTimeout()},
		limiter:     newLimiter(cfg.Catalog.RateLimitCalls, time.Duration(cfg.Catalog.RateLimitPeriodSeconds)*time.Second),
		logger:      logging.NewComponentLogger(nil, "catalog"),
	}
	if c.pageSize <= 0 {
		c.pageSize = 500
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newLimiter spaces requests evenly so that no window of length period
// admits more than calls of them.
func newLimiter(calls int, period time.Duration) *rate.Limiter {
	if calls <= 0 || period <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(period/time.Duration(calls)), 1)
}

type indexResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Passkey  string `json:"passkey"`
}

// Login resolves the account behind the API key and its announce URL.
func (c *HTTPClient) Login(ctx context.Context) error {
	var index indexResponse
	if err := c.get(ctx, "index", nil, &index); err != nil {
		return err
	}
	c.userID = index.ID
	c.username = index.Username
	tpl := c.announceTpl
	tpl = strings.ReplaceAll(tpl, "{}", index.Passkey)
	tpl = strings.ReplaceAll(tpl, "%s", index.Passkey)
	c.announce = tpl
	c.logger.Info("logged in to catalog",
		logging.String("endpoint", c.endpoint),
		logging.String("username", index.Username),
	)
	return nil
}

// AnnounceURL returns the account announce URL resolved at login.
func (c *HTTPClient) AnnounceURL() string { return c.announce }

// URL returns the permalink for an item.
func (c *HTTPClient) URL(groupID, itemID int64) string {
	return ItemURL(c.endpoint, groupID, itemID)
}

type groupResponse struct {
	Group Group  `json:"group"`
	Items []Item `json:"torrents"`
}

type itemResponse struct {
	Group Group `json:"group"`
	Item  Item  `json:"torrent"`
}

// FetchRelease loads an item, its group and the group's items.
func (c *HTTPClient) FetchRelease(ctx context.Context, groupID, itemID int64) (*Release, error) {
	var (
		item  Item
		found bool
	)
	if groupID == 0 {
		var single itemResponse
		if err := c.get(ctx, "torrent", url.Values{"id": {strconv.FormatInt(itemID, 10)}}, &single); err != nil {
			return nil, err
		}
		groupID = single.Group.ID
		item = single.Item
		found = true
	}

	var group groupResponse
	if err := c.get(ctx, "torrentgroup", url.Values{"id": {strconv.FormatInt(groupID, 10)}}, &group); err != nil {
		return nil, err
	}
	if !found {
		for _, candidate := range group.Items {
			if candidate.ID == itemID {
				item = candidate
				found = true
				break
			}
		}
	}
	if !found {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "fetch release",
			fmt.Sprintf("item %d does not exist in group %d", itemID, groupID), nil)
	}
	return &Release{Group: group.Group, Item: item, Siblings: group.Items}, nil
}

type feedEntry struct {
	GroupID int64 `json:"groupId"`
	ItemID  int64 `json:"torrentId"`
}

// CrawlFeed pages through the logged-in user's items of the given kind.
func (c *HTTPClient) CrawlFeed(ctx context.Context, kind string) iter.Seq2[Ref, error] {
	return func(yield func(Ref, error) bool) {
		if c.userID == 0 {
			yield(Ref{}, services.Wrap(services.ErrAborted, "catalog", "crawl feed", kind, ErrNotLoggedIn))
			return
		}
		offset := 0
		for {
			params := url.Values{
				"id":     {strconv.FormatInt(c.userID, 10)},
				"type":   {kind},
				"offset": {strconv.Itoa(offset)},
				"limit":  {strconv.Itoa(c.pageSize)},
			}
			var page map[string][]feedEntry
			if err := c.get(ctx, "user_torrents", params, &page); err != nil {
				yield(Ref{}, err)
				return
			}
			entries := page[kind]
			for _, entry := range entries {
				if !yield(Ref{GroupID: entry.GroupID, ItemID: entry.ItemID}, nil) {
					return
				}
			}
			if len(entries) < c.pageSize {
				return
			}
			offset += c.pageSize
		}
	}
}

// Collage loads a collage with its groups and items.
func (c *HTTPClient) Collage(ctx context.Context, id int64) (*Collage, error) {
	var collage Collage
	if err := c.get(ctx, "collage", url.Values{"id": {strconv.FormatInt(id, 10)}}, &collage); err != nil {
		return nil, err
	}
	for gi := range collage.Groups {
		for ii := range collage.Groups[gi].Items {
			item := &collage.Groups[gi].Items[ii]
			if item.ID == 0 {
				item.ID = item.TorrentID
			}
		}
	}
	return &collage, nil
}

// Download fetches the bundle file for an item, optionally spending a
// freeleech token.
func (c *HTTPClient) Download(ctx context.Context, itemID int64, freeleech bool) ([]byte, error) {
	token := "0"
	if freeleech {
		token = "1"
	}
	resp, err := c.do(ctx, http.MethodGet, "download", url.Values{"id": {strconv.FormatInt(itemID, 10)}, "usetoken": {token}}, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrCatalog, "catalog", "download", "read body", err)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/x-bittorrent") {
		return nil, services.Wrap(services.ErrCatalog, "catalog", "download",
			fmt.Sprintf("failed to download item %d: %s", itemID, strings.TrimSpace(string(body))), nil)
	}
	return body, nil
}

// Publish uploads a bundle file as a new format of upload.Item's edition.
func (c *HTTPClient) Publish(ctx context.Context, upload Upload) error {
	bundle, err := os.ReadFile(upload.BundlePath)
	if err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "publish", "read bundle", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file_input", "upload.torrent")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(bundle); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	fields := [][2]string{
		{"groupid", strconv.FormatInt(upload.Group.ID, 10)},
		{"release", strconv.Itoa(upload.Group.ReleaseType)},
		{"format", upload.Format.Base},
		{"bitrate", upload.Format.Encoding},
		{"media", upload.Item.Media},
	}
	if upload.Description != "" {
		fields = append(fields, [2]string{"release_desc", upload.Description})
	}
	if upload.Item.Remastered {
		year := ""
		if upload.Item.RemasterYear != nil {
			year = strconv.Itoa(*upload.Item.RemasterYear)
		}
		fields = append(fields,
			[2]string{"remaster_year", year},
			[2]string{"remaster_title", upload.Item.RemasterTitle},
			[2]string{"remaster_record_label", upload.Item.RemasterRecordLabel},
			[2]string{"remaster_catalogue_number", upload.Item.RemasterCatalogueNumber},
		)
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return fmt.Errorf("write field %s: %w", field[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "upload", nil, &body, writer.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decode(resp, "upload", nil)
}

func (c *HTTPClient) get(ctx context.Context, action string, params url.Values, target any) error {
	resp, err := c.do(ctx, http.MethodGet, action, params, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decode(resp, action, target)
}

func (c *HTTPClient) do(ctx context.Context, method, action string, params url.Values, body io.Reader, contentType string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrCatalog, "catalog", action, "rate limit wait", err)
	}

	query := url.Values{"action": {action}}
	for k, v := range params {
		query[k] = v
	}
	target := c.endpoint + "ajax.php?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("catalog request", logging.String("action", action), logging.String("method", method))
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrCatalog, "catalog", action, "request failed", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, services.Wrap(services.ErrAborted, "catalog", action,
			fmt.Sprintf("authentication rejected (%d)", resp.StatusCode), services.ErrCatalog)
	}
	return resp, nil
}

func (c *HTTPClient) decode(resp *http.Response, action string, target any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrCatalog, "catalog", action, "read body", err)
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			return services.Wrap(services.ErrCatalog, "catalog", action, fmt.Sprintf("failed HTTP request: %d", resp.StatusCode), err)
		}
		return services.Wrap(services.ErrCatalog, "catalog", action, "unexpected response", err)
	}
	if env.Status != "success" {
		marker := services.ErrCatalog
		if isInvalidReference(env.Error) {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, "catalog", action, "failed request: "+env.Error, nil)
	}
	if target == nil {
		return nil
	}
	if err := decodeInto(env.Response, target); err != nil {
		return services.Wrap(services.ErrCatalog, "catalog", action, "decode response", err)
	}
	return nil
}

func isInvalidReference(message string) bool {
	message = strings.ToLower(message)
	return strings.Contains(message, "bad id") || strings.Contains(message, "bad parameters") || strings.Contains(message, "not found")
}

// ErrNotLoggedIn is returned by operations that need the account id.
var ErrNotLoggedIn = errors.New("catalog client not logged in")
