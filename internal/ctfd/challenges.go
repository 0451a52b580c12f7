package ctfd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/tamuctf/CTFd/internal/domain"
)

var validate = validator.New()

type gameResponse struct {
	Game []domain.Challenge `json:"game"`
}

// Challenges fetches the full admin listing.
func (c *Client) Challenges(ctx context.Context) ([]domain.Challenge, error) {
	data, err := c.postForm(ctx, "list_challenges", "/admin/chals", nil)
	if err != nil {
		return nil, err
	}
	var resp gameResponse
	if err := decodeJSON("list_challenges", data, &resp); err != nil {
		return nil, err
	}
	return resp.Game, nil
}

// UpdateChallenge saves challenge metadata.
func (c *Client) UpdateChallenge(ctx context.Context, ch domain.Challenge) error {
	if err := validate.Struct(ch); err != nil {
		return validationError("update_challenge", "invalid challenge", err)
	}
	form := url.Values{
		"id":          {strconv.Itoa(ch.ID)},
		"name":        {ch.Name},
		"category":    {ch.Category},
		"description": {ch.Description},
		"value":       {strconv.Itoa(ch.Value)},
		"hint":        {ch.Hint},
	}
	if ch.Hidden {
		form.Set("hidden", "on")
	}
	_, err := c.postForm(ctx, "update_challenge", "/admin/chal/update", form)
	return err
}

// DeleteChallenge removes a challenge.
func (c *Client) DeleteChallenge(ctx context.Context, id int) error {
	return c.postExpectOne(ctx, "delete_challenge", "/admin/chal/delete", url.Values{"id": {strconv.Itoa(id)}})
}

// SubmitKey tests a flag against a challenge.
func (c *Client) SubmitKey(ctx context.Context, chalID int, key string) (domain.KeyResult, error) {
	var res domain.KeyResult
	data, err := c.postForm(ctx, "submit_key", fmt.Sprintf("/admin/chal/%d", chalID), url.Values{"key": {key}})
	if err != nil {
		return res, err
	}
	err = decodeJSON("submit_key", data, &res)
	return res, err
}
