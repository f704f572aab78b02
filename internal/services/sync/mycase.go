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
	mycaseAPIBase  = "https://api.mycase.com/v2"
	mycaseTokenURL = "https://www.mycase.com/oauth/token"
)

type MyCaseClient struct {
	BaseURL  string
	TokenURL string

	clientID     string
	clientSecret string
	http         *http.Client
	token        OAuthToken
	saveToken    TokenSaver
}

func NewMyCaseClient(token OAuthToken, clientID, clientSecret string, save TokenSaver) *MyCaseClient {
	return &MyCaseClient{
		BaseURL:      mycaseAPIBase,
		TokenURL:     mycaseTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
		token:        token,
		saveToken:    save,
	}
}

func (c *MyCaseClient) Provider() string { return "mycase" }

func (c *MyCaseClient) refresh() error {
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

func (c *MyCaseClient) get(path string, params url.Values, out interface{}) error {
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
		return fmt.Errorf("mycase: %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type mycaseCase struct {
	ID         json.Number `json:"id"`
	CaseNumber string      `json:"case_number"`
	Name       string      `json:"name"`
	Client     struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"client"`
	Status       string `json:"status"`
	PracticeArea string `json:"practice_area"`
}

type mycaseEntry struct {
	ID          json.Number `json:"id"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	User        struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"user"`
	Case struct {
		ID         json.Number `json:"id"`
		CaseNumber string      `json:"case_number"`
	} `json:"case"`
	Hours     float64 `json:"hours"`
	Rate      float64 `json:"rate"`
	Total     float64 `json:"total"`
	Billed    bool    `json:"billed"`
	Billable  bool    `json:"billable"`
	CreatedAt string  `json:"created_at"`
}

func (c *MyCaseClient) FetchMatters() ([]RemoteMatter, error) {
	var matters []RemoteMatter

	for page := 1; ; page++ {
		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {"100"},
		}
		var resp struct {
			Cases []mycaseCase `json:"cases"`
		}
		if err := c.get("/cases", params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Cases) == 0 {
			break
		}

		for _, m := range resp.Cases {
			matters = append(matters, RemoteMatter{
				ExternalID:    m.ID.String(),
				DisplayNumber: m.CaseNumber,
				Description:   m.Name,
				ClientName:    m.Client.Name,
				Status:        m.Status,
				PracticeArea:  m.PracticeArea,
			})
		}
	}

	return matters, nil
}

func (c *MyCaseClient) FetchEntries(start, end time.Time) ([]RemoteEntry, error) {
	var entries []RemoteEntry

	for page := 1; ; page++ {
		params := url.Values{
			"page":       {strconv.Itoa(page)},
			"per_page":   {"100"},
			"start_date": {start.Format("2006-01-02")},
			"end_date":   {end.Format("2006-01-02")},
		}
		var resp struct {
			TimeEntries []mycaseEntry `json:"time_entries"`
		}
		if err := c.get("/time_entries", params, &resp); err != nil {
			return nil, err
		}
		if len(resp.TimeEntries) == 0 {
			break
		}

		for _, e := range resp.TimeEntries {
			date, err := time.Parse("2006-01-02", e.Date)
			if err != nil {
				continue
			}
			created, _ := time.Parse(time.RFC3339, e.CreatedAt)

			entries = append(entries, RemoteEntry{
				ExternalID:  e.ID.String(),
				MatterRef:   e.Case.CaseNumber,
				Date:        date,
				Description: e.Description,
				Timekeeper:  e.User.Name,
				Hours:       decimal.NewFromFloat(e.Hours),
				Rate:        decimal.NewFromFloat(e.Rate),
				Amount:      decimal.NewFromFloat(e.Total),
				EntryType:   "time",
				Billable:    e.Billable,
				Billed:      e.Billed,
				CreatedAt:   created,
			})
		}
	}

	return entries, nil
}
