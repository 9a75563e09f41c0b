package points

import (
	"context"
	"fmt"
	"io"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/common"
	"github.com/redbco/tdmeta/pkg/collection"
	"github.com/redbco/tdmeta/pkg/collection/meta"
)

// RegisterOptions holds the settings of `points register`.
type RegisterOptions struct {
	Name        string
	Description string
	Type        string
	Store       string
	Collector   string
	Tags        []string
	Secrets     []string
}

// SecretSaver stores one private option of a registered point.
type SecretSaver func(pointKey, option, value string) error

// SearchPoints prints one page of points, optionally limited to one store.
func SearchPoints(ctx context.Context, c *meta.Catalog, w io.Writer, like, store string, page, size int) error {
	found, err := c.SearchPoints(ctx, like, store, page, size)
	if err != nil {
		return fmt.Errorf("failed to search points: %w", err)
	}
	if len(found) == 0 {
		fmt.Fprintln(w, "No points found")
		return nil
	}

	tw := common.NewTable(w)
	common.Header(tw, "Key", "Name", "Store", "Collector", "Type", "Description")
	for _, p := range found {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Key(),
			p.Name(),
			p.Store().Name(),
			p.Collector().Name(),
			p.TypeTag(),
			common.OrDash(p.Description()))
	}
	return tw.Flush()
}

// ShowPoint prints one point and its latest statistics.
func ShowPoint(ctx context.Context, c *meta.Catalog, w io.Writer, key string) error {
	p, err := c.PointInfo(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get point: %w", err)
	}
	if p == nil {
		return fmt.Errorf("point %s not found", key)
	}
	stats, ok, err := c.LatestPointStats(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get point statistics: %w", err)
	}

	fmt.Fprintf(w, "Key:         %s\n", p.Key())
	fmt.Fprintf(w, "Name:        %s\n", p.Name())
	fmt.Fprintf(w, "Type:        %s\n", p.TypeTag())
	fmt.Fprintf(w, "Store:       %s\n", p.Store().Name())
	fmt.Fprintf(w, "Collector:   %s\n", p.Collector().Name())
	fmt.Fprintf(w, "Description: %s\n", common.OrDash(p.Description()))
	if !ok {
		fmt.Fprintln(w, "Statistics:  none")
		return nil
	}
	fmt.Fprintf(w, "Rows:        %d\n", stats.DataCount)
	fmt.Fprintf(w, "Bytes:       %d\n", stats.DataSize)
	fmt.Fprintf(w, "Last data:   %s\n", common.Time(stats.RecentlyDataTime))
	fmt.Fprintf(w, "Counted:     %s\n", common.Time(stats.CountingTime))
	return nil
}

// RegisterPoint binds a collector to a store. Secrets are handed to save
// once the point has its key and are never written to the catalog.
func RegisterPoint(ctx context.Context, c *meta.Catalog, w io.Writer, opts RegisterOptions, save SecretSaver) error {
	tags, err := common.ParsePairs("tag", opts.Tags)
	if err != nil {
		return err
	}
	secrets, err := common.ParsePairs("secret", opts.Secrets)
	if err != nil {
		return err
	}

	store, err := c.StoreInfo(ctx, opts.Store)
	if err != nil {
		return fmt.Errorf("failed to get store: %w", err)
	}
	if store == nil {
		return fmt.Errorf("store %s not found", opts.Store)
	}
	col, err := c.CollectorInfo(ctx, opts.Collector)
	if err != nil {
		return fmt.Errorf("failed to get collector: %w", err)
	}
	if col == nil {
		return fmt.Errorf("collector %s not found", opts.Collector)
	}

	var pointOpts []collection.PointOption
	if opts.Type != "" {
		pointOpts = append(pointOpts, collection.WithPointTypeTag(opts.Type))
	}
	for _, k := range common.SortedKeys(tags) {
		pointOpts = append(pointOpts, collection.WithTagValue(k, tags[k]))
	}
	for _, k := range common.SortedKeys(secrets) {
		pointOpts = append(pointOpts, collection.WithPrivateOption(k, secrets[k]))
	}

	registered, err := c.RegisterPoint(ctx, collection.NewPoint(opts.Name, opts.Description, col, store, pointOpts...))
	if err != nil {
		return fmt.Errorf("failed to register point: %w", err)
	}
	for _, k := range common.SortedKeys(secrets) {
		if err := save(registered.Key(), k, secrets[k]); err != nil {
			return fmt.Errorf("point %s registered but secret %s was not saved: %w", registered.Key(), k, err)
		}
	}
	fmt.Fprintf(w, "Point %s registered with key %s\n", registered.Name(), registered.Key())
	return nil
}
