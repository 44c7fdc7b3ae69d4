// Package creatures fetches collectible-creature profiles from the public
// creature index REST API.
package creatures

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public creature index endpoint.
const DefaultBaseURL = "https://digi-api.com/api/v1"

// MaxID is the highest creature id the index serves.
const MaxID = 1459

// Creature is one indexed creature profile.
type Creature struct {
	ID         int
	Name       string
	ImageURL   string
	Levels     []string
	Types      []string
	Attributes []string
	Skills     []string
}

// Client is a thin HTTP client for the creature index.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a client against the public index.
func NewClient() *Client {
	return NewClientWithBaseURL(DefaultBaseURL)
}

// NewClientWithBaseURL builds a client against a custom endpoint, used in
// tests.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Creature fetches one profile by id.
func (c *Client) Creature(ctx context.Context, id int) (*Creature, error) {
	url := fmt.Sprintf("%s/digimon/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creature index: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creature index: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("creature index: GET %s: %s: %s", url, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var payload struct {
		ID     int    `json:"id"`
		Name   string `json:"name"`
		Images []struct {
			Href string `json:"href"`
		} `json:"images"`
		Levels []struct {
			Level string `json:"level"`
		} `json:"levels"`
		Types []struct {
			Type string `json:"type"`
		} `json:"types"`
		Attributes []struct {
			Attribute string `json:"attribute"`
		} `json:"attributes"`
		Skills []struct {
			Skill string `json:"skill"`
		} `json:"skills"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("creature index: decode response: %w", err)
	}

	creature := &Creature{
		ID:   payload.ID,
		Name: payload.Name,
	}
	if len(payload.Images) > 0 {
		creature.ImageURL = payload.Images[0].Href
	}
	for _, l := range payload.Levels {
		creature.Levels = append(creature.Levels, l.Level)
	}
	for _, t := range payload.Types {
		creature.Types = append(creature.Types, t.Type)
	}
	for _, a := range payload.Attributes {
		creature.Attributes = append(creature.Attributes, a.Attribute)
	}
	for _, s := range payload.Skills {
		creature.Skills = append(creature.Skills, s.Skill)
	}
	return creature, nil
}
