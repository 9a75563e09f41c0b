package stores

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/common"
	"github.com/redbco/tdmeta/pkg/collection"
	"github.com/redbco/tdmeta/pkg/collection/meta"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// RegisterOptions holds the settings of `stores register`.
type RegisterOptions struct {
	Name        string
	Description string
	Type        string
	KeepDays    int
	Update      string
	Options     []string
}

// ListStores prints every registered store with its latest statistics.
func ListStores(ctx context.Context, c *meta.Catalog, w io.Writer) error {
	stores, stats, err := c.AllStores(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stores: %w", err)
	}
	if len(stores) == 0 {
		fmt.Fprintln(w, "No stores found")
		return nil
	}

	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := common.NewTable(w)
	common.Header(tw, "Name", "Type", "Points", "Collectors", "Rows", "Bytes", "Counted", "Description")
	for _, name := range names {
		s, st := stores[name], stats[name]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			s.Name(),
			s.TypeTag(),
			st.PointCount,
			st.CollectorCount,
			st.DataCount,
			st.DataSize,
			common.Time(st.CountingTime),
			common.OrDash(s.Description()))
	}
	return tw.Flush()
}

// ShowStore prints one store.
func ShowStore(ctx context.Context, c *meta.Catalog, w io.Writer, name string) error {
	s, err := c.StoreInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get store: %w", err)
	}
	if s == nil {
		return fmt.Errorf("store %s not found", name)
	}
	_, stats, err := c.AllStores(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store statistics: %w", err)
	}
	st := stats[name]

	fmt.Fprintf(w, "Name:        %s\n", s.Name())
	fmt.Fprintf(w, "Type:        %s\n", s.TypeTag())
	fmt.Fprintf(w, "Description: %s\n", common.OrDash(s.Description()))
	fmt.Fprintf(w, "Points:      %d\n", st.PointCount)
	fmt.Fprintf(w, "Collectors:  %d\n", st.CollectorCount)
	fmt.Fprintf(w, "Rows:        %d\n", st.DataCount)
	fmt.Fprintf(w, "Bytes:       %d\n", st.DataSize)
	fmt.Fprintf(w, "Counted:     %s\n", common.Time(st.CountingTime))
	return nil
}

// RegisterStore registers a store and creates its backing database.
func RegisterStore(ctx context.Context, c *meta.Catalog, w io.Writer, opts RegisterOptions) error {
	update, err := tdtypes.ParseUpdateMode(opts.Update)
	if err != nil {
		return err
	}
	options, err := common.ParsePairs("option", opts.Options)
	if err != nil {
		return err
	}

	storeOpts := []collection.StoreOption{collection.WithUpdateMode(update)}
	if opts.KeepDays > 0 {
		storeOpts = append(storeOpts, collection.WithKeepDays(opts.KeepDays))
	}
	if opts.Type != "" {
		storeOpts = append(storeOpts, collection.WithStoreTypeTag(opts.Type))
	}
	for _, k := range common.SortedKeys(options) {
		storeOpts = append(storeOpts, collection.WithStoreOption(k, options[k]))
	}

	store := collection.NewStore(opts.Name, opts.Description, storeOpts...)
	if err := c.RegisterStore(ctx, store); err != nil {
		return fmt.Errorf("failed to register store: %w", err)
	}
	fmt.Fprintf(w, "Store %s registered (KEEP %d, UPDATE %s)\n", store.Name(), store.KeepDays(), store.UpdateMode())
	return nil
}
