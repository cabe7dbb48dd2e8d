package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/s/leadBoard/internal/board"
	"github.com/s/leadBoard/internal/leadquery"
	"github.com/s/leadBoard/internal/models"
)

// LeadPage is one page of GET /leads.
type LeadPage struct {
	Data     []models.Lead `json:"data"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Pages    int           `json:"pages"`
}

// Login signs in with a password and fills the session.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	var resp struct {
		Token        string      `json:"token"`
		RefreshToken string      `json:"refresh_token"`
		User         models.User `json:"user"`
	}
	err := c.Do(ctx, http.MethodPost, loginPath, map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return models.User{}, err
	}
	c.session.SetTokens(resp.Token, resp.RefreshToken)
	c.session.SetUser(resp.User.Name, resp.User.Picture)
	return resp.User, nil
}

// Logout revokes the refresh session server side; the local session is
// cleared even when that call fails.
func (c *Client) Logout(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{"refresh_token": c.session.RefreshToken()})
	err := c.send(ctx, http.MethodPost, logoutPath, body, c.session.Token(), nil)
	c.session.Clear()
	return err
}

func (c *Client) ListLeads(ctx context.Context, f leadquery.Filter, page, pageSize int) (LeadPage, error) {
	q := f.Values()
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprint(pageSize))
	}
	path := "/leads"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var out LeadPage
	err := c.Do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateLead(ctx context.Context, lead models.Lead) (models.Lead, error) {
	var out models.Lead
	err := c.Do(ctx, http.MethodPost, "/leads", lead, &out)
	return out, err
}

// UpdateLeadStatus persists a board move.
func (c *Client) UpdateLeadStatus(ctx context.Context, leadID uint, status models.LeadStatus, position int) error {
	body := map[string]interface{}{"status": status, "position": position}
	return c.Do(ctx, http.MethodPatch, fmt.Sprintf("/leads/%d/status", leadID), body, nil)
}

func (c *Client) ArchiveLead(ctx context.Context, leadID uint) (models.Lead, error) {
	var out models.Lead
	err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/leads/%d/archive", leadID), nil, &out)
	return out, err
}

func (c *Client) RestoreLead(ctx context.Context, leadID uint) (models.Lead, error) {
	var out models.Lead
	err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/leads/%d/restore", leadID), nil, &out)
	return out, err
}

// Board fetches the board and returns it in the shape board.New takes.
func (c *Client) Board(ctx context.Context, f leadquery.Filter) ([]board.Column, error) {
	path := "/leads/board"
	if enc := f.Values().Encode(); enc != "" {
		path += "?" + enc
	}
	var resp []models.BoardColumn
	if err := c.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	cols := make([]board.Column, len(resp))
	for i, col := range resp {
		cols[i].Status = col.Status
		for _, l := range col.Leads {
			cols[i].LeadIDs = append(cols[i].LeadIDs, l.ID)
		}
	}
	return cols, nil
}

var _ board.Persister = (*Client)(nil)
