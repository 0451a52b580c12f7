package ctfd

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tamuctf/CTFd/internal/domain"
)

// Panels is everything the editor shows for one challenge besides metadata.
type Panels struct {
	Keys      []domain.Key
	Tags      []domain.Tag
	Files     []domain.File
	Discovery []domain.DiscoveryEntry
	Hints     []domain.Hint
}

// LoadPanels fetches the keys, tags, files, discovery rules and hints of a
// challenge concurrently. The first failure cancels the rest.
func (c *Client) LoadPanels(ctx context.Context, chalID int) (*Panels, error) {
	var p Panels
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		p.Keys, err = c.Keys(ctx, chalID)
		return err
	})
	g.Go(func() (err error) {
		p.Tags, err = c.Tags(ctx, chalID)
		return err
	})
	g.Go(func() (err error) {
		p.Files, err = c.Files(ctx, chalID)
		return err
	})
	g.Go(func() (err error) {
		p.Discovery, err = c.DiscoveryList(ctx, chalID)
		return err
	})
	g.Go(func() (err error) {
		p.Hints, err = c.Hints(ctx, chalID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &p, nil
}
