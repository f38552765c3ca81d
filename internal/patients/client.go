package patients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"caremind/internal"
	"caremind/internal/config"
)

var ErrMissingBaseURL = errors.New("missing RECORDS_API_BASE_URL")

// Client talks to the ward's PHP records API. Each call is a single attempt.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
}

type listResponse struct {
	Data []json.RawMessage `json:"data"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RecordsTimeoutMs) * time.Millisecond},
	}
}

// GetPatientInfo returns nil without error when the API answers with an
// "error" field or an empty body.
func (c *Client) GetPatientInfo(ctx context.Context, an string) (*internal.PatientInfo, error) {
	body, err := c.fetchJSON(ctx, "get_patient_info.php", map[string]string{"an": an})
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode patient %s: %w", an, err)
	}
	if len(raw) == 0 || raw["error"] != nil {
		return nil, nil
	}
	info := ToPatientInfo(an, raw)
	return &info, nil
}

func (c *Client) GetPatientList(ctx context.Context) ([]string, error) {
	body, err := c.fetchJSON(ctx, "get_patient_list.php", map[string]string{})
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode patient list: %w", err)
	}
	out := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		if an := anFromListItem(item); an != "" {
			out = append(out, an)
		}
	}
	return out, nil
}

// anFromListItem accepts both bare strings and objects carrying an "an" key.
func anFromListItem(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return stringField(obj, "an", "AN")
	}
	return ""
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.RecordsAPIBaseURL) == "" {
		return nil, ErrMissingBaseURL
	}

	baseURL := strings.TrimRight(c.cfg.RecordsAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("records api %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("records api %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("records api error: status=%d body=%s", resp.StatusCode, errorText(resp.Header.Get("Content-Type"), body))
	}
	return body, nil
}

const maxErrorTextRunes = 300

// errorText reduces HTML error pages (PHP warnings, proxy pages) to their
// visible text.
func errorText(contentType string, body []byte) string {
	text := strings.TrimSpace(string(body))
	if strings.Contains(contentType, "html") || strings.HasPrefix(text, "<") {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
			doc.Find("script, style").Remove()
			text = strings.Join(strings.Fields(doc.Text()), " ")
		}
	}
	if runes := []rune(text); len(runes) > maxErrorTextRunes {
		text = string(runes[:maxErrorTextRunes])
	}
	return text
}
