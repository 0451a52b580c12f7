package ctfd

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/tamuctf/CTFd/internal/domain"
)

type wireKey struct {
	ID       int    `json:"id"`
	Chal     int    `json:"chal"`
	Key      string `json:"key"`
	Flag     string `json:"flag"`
	Type     int    `json:"type"`
	TypeName string `json:"type_name"`
}

func (k wireKey) domain() domain.Key {
	flag := k.Flag
	if flag == "" {
		flag = k.Key
	}
	return domain.Key{ID: k.ID, Chal: k.Chal, Flag: flag, KeyType: k.Type, TypeName: k.TypeName}
}

// Keys lists the keys of a challenge.
func (c *Client) Keys(ctx context.Context, chalID int) ([]domain.Key, error) {
	var resp struct {
		Keys []wireKey `json:"keys"`
	}
	if err := c.getJSON(ctx, "list_keys", fmt.Sprintf("/admin/chal/%d/keys", chalID), &resp); err != nil {
		return nil, err
	}
	keys := make([]domain.Key, 0, len(resp.Keys))
	for _, k := range resp.Keys {
		key := k.domain()
		if key.Chal == 0 {
			key.Chal = chalID
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Key fetches a single key.
func (c *Client) Key(ctx context.Context, keyID int) (domain.Key, error) {
	var k wireKey
	if err := c.getJSON(ctx, "get_key", fmt.Sprintf("/admin/keys/%d", keyID), &k); err != nil {
		return domain.Key{}, err
	}
	key := k.domain()
	if key.ID == 0 {
		key.ID = keyID
	}
	return key, nil
}

// KeyTypes returns the server's key type registry ordered by id.
func (c *Client) KeyTypes(ctx context.Context) ([]domain.KeyType, error) {
	var resp map[string]string
	if err := c.getJSON(ctx, "key_types", "/admin/key_types", &resp); err != nil {
		return nil, err
	}
	types := make([]domain.KeyType, 0, len(resp))
	for id, name := range resp {
		types = append(types, domain.KeyType{ID: id, Name: name})
	}
	sort.Slice(types, func(i, j int) bool {
		a, errA := strconv.Atoi(types[i].ID)
		b, errB := strconv.Atoi(types[j].ID)
		if errA != nil || errB != nil {
			return types[i].ID < types[j].ID
		}
		return a < b
	})
	return types, nil
}

// CreateKey adds a key to a challenge.
func (c *Client) CreateKey(ctx context.Context, chalID int, flag, keyType string) error {
	if flag == "" || keyType == "" {
		return validationError("create_key", "key and key type are required", nil)
	}
	return c.postExpectOne(ctx, "create_key", "/admin/keys", url.Values{
		"chal":     {strconv.Itoa(chalID)},
		"key":      {flag},
		"key_type": {keyType},
	})
}

// UpdateKey edits one key.
func (c *Client) UpdateKey(ctx context.Context, keyID, chalID int, flag, keyType string) error {
	if flag == "" || keyType == "" {
		return validationError("update_key", "key and key type are required", nil)
	}
	return c.postExpectOne(ctx, "update_key", fmt.Sprintf("/admin/keys/%d", keyID), url.Values{
		"chal":     {strconv.Itoa(chalID)},
		"key":      {flag},
		"key_type": {keyType},
	})
}

// ReplaceKeys overwrites all keys of a challenge. flags and types are parallel.
func (c *Client) ReplaceKeys(ctx context.Context, chalID int, flags, types []string) error {
	if len(flags) != len(types) {
		return validationError("replace_keys", "every key needs a type", nil)
	}
	_, err := c.postForm(ctx, "replace_keys", fmt.Sprintf("/admin/keys/%d", chalID), url.Values{
		"keys[]": flags,
		"vals[]": types,
	})
	return err
}

// DeleteKey removes one key.
func (c *Client) DeleteKey(ctx context.Context, keyID int) error {
	return c.postExpectOne(ctx, "delete_key", fmt.Sprintf("/admin/keys/%d/delete", keyID), nil)
}
