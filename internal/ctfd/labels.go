package ctfd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tamuctf/CTFd/internal/discovery"
	"github.com/tamuctf/CTFd/internal/domain"
)

// Tags lists the saved tags of a challenge.
func (c *Client) Tags(ctx context.Context, chalID int) ([]domain.Tag, error) {
	var resp struct {
		Tags []domain.Tag `json:"tags"`
	}
	err := c.getJSON(ctx, "list_tags", fmt.Sprintf("/admin/tags/%d", chalID), &resp)
	return resp.Tags, err
}

// UpdateTags adds tags to a challenge.
func (c *Client) UpdateTags(ctx context.Context, chalID int, tags []string) error {
	_, err := c.postForm(ctx, "update_tags", fmt.Sprintf("/admin/tags/%d", chalID), url.Values{"tags[]": tags})
	return err
}

// DeleteTag removes a saved tag.
func (c *Client) DeleteTag(ctx context.Context, tagID int) error {
	_, err := c.postForm(ctx, "delete_tag", fmt.Sprintf("/admin/tags/%d/delete", tagID), nil)
	return err
}

// Hints lists the saved hints of a challenge.
func (c *Client) Hints(ctx context.Context, chalID int) ([]domain.Hint, error) {
	var resp struct {
		Hint []domain.Hint `json:"hint"`
	}
	err := c.getJSON(ctx, "list_hints", fmt.Sprintf("/admin/hint/%d", chalID), &resp)
	return resp.Hint, err
}

// UpdateHints adds hints to a challenge.
func (c *Client) UpdateHints(ctx context.Context, chalID int, hints []string) error {
	_, err := c.postForm(ctx, "update_hints", fmt.Sprintf("/admin/hint/%d", chalID), url.Values{"hint[]": hints})
	return err
}

// DeleteHint removes a saved hint.
func (c *Client) DeleteHint(ctx context.Context, hintID int) error {
	_, err := c.postForm(ctx, "delete_hint", fmt.Sprintf("/admin/hint/%d/delete", hintID), nil)
	return err
}

// DiscoveryList lists the saved discovery rules of a challenge.
func (c *Client) DiscoveryList(ctx context.Context, chalID int) ([]domain.DiscoveryEntry, error) {
	var resp struct {
		DiscoveryList []domain.DiscoveryEntry `json:"discoveryList"`
	}
	err := c.getJSON(ctx, "list_discovery", fmt.Sprintf("/admin/discoveryList/%d", chalID), &resp)
	return resp.DiscoveryList, err
}

// UpdateDiscoveryList submits new discovery rules, each encoded as "id1&id2".
// Rules that do not decode to positive ids are rejected before sending.
func (c *Client) UpdateDiscoveryList(ctx context.Context, chalID int, rules []string) error {
	if len(rules) == 0 {
		return validationError("update_discovery", "no discovery rules selected", discovery.ErrEmptySelection)
	}
	encoded := make([]string, 0, len(rules))
	for _, rule := range rules {
		ids, err := discovery.Decode(rule)
		if err != nil {
			return validationError("update_discovery", "invalid discovery rule", err)
		}
		for _, id := range ids {
			if id == chalID {
				return validationError("update_discovery", "a challenge cannot require itself", nil)
			}
		}
		encoded = append(encoded, discovery.Encode(ids))
	}
	_, err := c.postForm(ctx, "update_discovery", fmt.Sprintf("/admin/discoveryList/%d", chalID), url.Values{"discoveryList[]": encoded})
	return err
}

// DeleteDiscovery removes a saved discovery rule.
func (c *Client) DeleteDiscovery(ctx context.Context, discoveryID int) error {
	_, err := c.postForm(ctx, "delete_discovery", fmt.Sprintf("/admin/discoveryList/%d/delete", discoveryID), nil)
	return err
}
