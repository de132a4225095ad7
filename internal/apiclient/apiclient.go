// Package apiclient is the small HTTP client the terminal frontends use
// to talk to a running pawprint daemon.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ki9ng/PawPrint/internal/state"
)

// Client talks to one daemon.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) get(path string, into interface{}) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

func (c *Client) Status() (*state.Status, error) {
	var s state.Status
	if err := c.get("/api/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Stations() ([]*state.Station, error) {
	var stations []*state.Station
	if err := c.get("/api/stations", &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

func (c *Client) Messages() ([]*state.Message, error) {
	var msgs []*state.Message
	if err := c.get("/api/messages", &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts an outbound message and returns the ledger entry in
// its initial sending state.
func (c *Client) SendMessage(to, text string) (*state.Message, error) {
	body, _ := json.Marshal(map[string]string{"to_call": to, "text": text})
	resp, err := c.http.Post(c.base+"/api/send_message", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return nil, fmt.Errorf("%s", e.Error)
		}
		return nil, fmt.Errorf("send_message: HTTP %d", resp.StatusCode)
	}
	var m state.Message
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
