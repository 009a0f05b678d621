package resolver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/boardlens/boardlens/logging"
)

// maxSearchResponseBytes bounds the lookup response body.
const maxSearchResponseBytes = 1 << 20

// searchResponse is the lookup payload. Fields are matched by key and weakly typed, so "true" and 1
// are accepted for found.
type searchResponse struct {
	Found    bool   `mapstructure:"found"`
	Filename string `mapstructure:"filename"`
	GLBURL   string `mapstructure:"glb_url"`
	PDFURL   string `mapstructure:"pdf_url"`
}

// Client performs content lookups. It never retries.
type Client struct {
	endpoint *url.URL
	http     *http.Client
	logger   logging.Logger
}

// NewClient returns a client for endpoint. A nil httpClient uses http.DefaultClient.
func NewClient(endpoint string, httpClient *http.Client, logger logging.Logger) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid resolver endpoint %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("resolver endpoint %q must be http or https", endpoint)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: u, http: httpClient, logger: logger}, nil
}

// Search issues exactly one GET <endpoint>?subject=&branch=&semester=&t=. Transport failures and
// non-2xx answers wrap ErrNetwork. A payload that cannot be understood, or that is found but has no
// model link, is a not-found record.
func (c *Client) Search(ctx context.Context, sel SelectionContext) (AssetRecord, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("subject", sel.Subject)
	q.Set("branch", sel.Branch)
	q.Set("semester", sel.Term)
	q.Set("t", uuid.NewString())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return AssetRecord{}, errors.Wrap(ErrNetwork, err.Error())
	}
	//nolint:bodyclose // closed in UncheckedErrorFunc
	resp, err := c.http.Do(req)
	if err != nil {
		return AssetRecord{}, errors.Wrapf(ErrNetwork, "lookup request failed: %v", err)
	}
	defer goutils.UncheckedErrorFunc(resp.Body.Close)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return AssetRecord{}, errors.Wrapf(ErrNetwork, "lookup returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchResponseBytes))
	if err != nil {
		return AssetRecord{}, errors.Wrapf(ErrNetwork, "reading lookup response: %v", err)
	}
	return c.parse(body, sel), nil
}

func (c *Client) parse(body []byte, sel SelectionContext) AssetRecord {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Warnw("malformed lookup response, treating as not found", "error", err)
		return AssetRecord{}
	}
	var parsed searchResponse
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &parsed,
	})
	if err != nil {
		return AssetRecord{}
	}
	if err := decoder.Decode(raw); err != nil {
		c.logger.Warnw("unexpected lookup response, treating as not found", "error", err)
		return AssetRecord{}
	}
	if !parsed.Found {
		return AssetRecord{}
	}
	model := NormalizeLink(strings.TrimSpace(parsed.GLBURL))
	if model == "" {
		c.logger.Warnw("lookup found content without a model link, treating as not found", "subject", sel.Subject)
		return AssetRecord{}
	}
	rec := AssetRecord{
		Found:       true,
		DisplayName: parsed.Filename,
		ModelURL:    &model,
	}
	if rec.DisplayName == "" {
		rec.DisplayName = sel.Subject
	}
	if doc := NormalizeLink(strings.TrimSpace(parsed.PDFURL)); doc != "" {
		rec.DocumentURL = &doc
	}
	return rec
}
