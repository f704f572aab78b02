package sync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	clioAPIBase  = "https://app.clio.com/api/v4"
	clioTokenURL = "https://app.clio.com/oauth/token"
)

// ClioClient pulls matters and activities from the Clio API with automatic
// token refresh on expiry and 401.
type ClioClient struct {
	BaseURL  string
	TokenURL string

	clientID     string
	clientSecret string
	http         *http.Client
	token        OAuthToken
	saveToken    TokenSaver
}

func NewClioClient(token OAuthToken, clientID, clientSecret string, save TokenSaver) *ClioClient {
	return &ClioClient{
		BaseURL:      clioAPIBase,
		TokenURL:     clioTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
		token:        token,
		saveToken:    save,
	}
}

func (c *ClioClient) Provider() string { return "clio" }

func (c *ClioClient) refresh() error {
	token, err := refreshToken(c.http, c.TokenURL, c.clientID, c.clientSecret, c.token)
	if err != nil {
		return err
	}
	c.token = token
	if c.saveToken != nil {
		return c.saveToken(token)
	}
	return nil
}

func (c *ClioClient) get(path string, params url.Values, out interface{}) error {
	if c.token.expired() {
		if err := c.refresh(); err != nil {
			return err
		}
	}

	do := func() (*http.Response, error) {
		req, err := http.NewRequest(http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		return c.http.Do(req)
	}

	resp, err := do()
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.refresh(); err != nil {
			return err
		}
		resp, err = do()
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clio: %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type clioMatter struct {
	ID            json.Number `json:"id"`
	DisplayNumber string      `json:"display_number"`
	Description   string      `json:"description"`
	Client        struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"client"`
	Status       string `json:"status"`
	PracticeArea struct {
		Name string `json:"name"`
	} `json:"practice_area"`
	BillingMethod string `json:"billing_method"`
}

type clioActivity struct {
	ID   json.Number `json:"id"`
	Type string      `json:"type"`
	Date string      `json:"date"`
	Note string      `json:"note"`
	User struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"user"`
	Matter struct {
		ID            json.Number `json:"id"`
		DisplayNumber string      `json:"display_number"`
	} `json:"matter"`
	Quantity  float64 `json:"quantity"`
	Rate      float64 `json:"rate"`
	Total     float64 `json:"total"`
	Billed    bool    `json:"billed"`
	Billable  bool    `json:"billable"`
	CreatedAt string  `json:"created_at"`
}

func (c *ClioClient) FetchMatters() ([]RemoteMatter, error) {
	var matters []RemoteMatter

	for page := 1; ; page++ {
		params := url.Values{
			"page":   {strconv.Itoa(page)},
			"limit":  {"100"},
			"status": {"Open"},
		}
		var resp struct {
			Data []clioMatter `json:"data"`
		}
		if err := c.get("/matters.json", params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			break
		}

		for _, m := range resp.Data {
			matters = append(matters, RemoteMatter{
				ExternalID:    m.ID.String(),
				DisplayNumber: m.DisplayNumber,
				Description:   m.Description,
				ClientName:    m.Client.Name,
				Status:        m.Status,
				PracticeArea:  m.PracticeArea.Name,
				BillingMethod: m.BillingMethod,
			})
		}
	}

	return matters, nil
}

func (c *ClioClient) FetchEntries(start, end time.Time) ([]RemoteEntry, error) {
	var entries []RemoteEntry

	for page := 1; ; page++ {
		params := url.Values{
			"page":           {strconv.Itoa(page)},
			"limit":          {"100"},
			"created_since":  {start.Format(time.RFC3339)},
			"created_before": {end.Format(time.RFC3339)},
		}
		var resp struct {
			Data []clioActivity `json:"data"`
		}
		if err := c.get("/activities.json", params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			break
		}

		for _, a := range resp.Data {
			date, err := time.Parse("2006-01-02", a.Date)
			if err != nil {
				continue
			}
			created, _ := time.Parse(time.RFC3339, a.CreatedAt)

			entryType := "time"
			if a.Type == "ExpenseEntry" {
				entryType = "expense"
			}

			entries = append(entries, RemoteEntry{
				ExternalID:  a.ID.String(),
				MatterRef:   a.Matter.DisplayNumber,
				Date:        date,
				Description: a.Note,
				Timekeeper:  a.User.Name,
				Hours:       decimal.NewFromFloat(a.Quantity),
				Rate:        decimal.NewFromFloat(a.Rate),
				Amount:      decimal.NewFromFloat(a.Total),
				EntryType:   entryType,
				Billable:    a.Billable,
				Billed:      a.Billed,
				CreatedAt:   created,
			})
		}
	}

	return entries, nil
}
