package collectors

import (
	"context"
	"fmt"
	"io"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/common"
	"github.com/redbco/tdmeta/pkg/collection"
	"github.com/redbco/tdmeta/pkg/collection/meta"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// SearchCollectors prints one page of collectors whose name contains like.
func SearchCollectors(ctx context.Context, c *meta.Catalog, w io.Writer, like string, page, size int) error {
	found, err := c.SearchCollectors(ctx, like, page, size)
	if err != nil {
		return fmt.Errorf("failed to search collectors: %w", err)
	}
	if len(found) == 0 {
		fmt.Fprintln(w, "No collectors found")
		return nil
	}

	tw := common.NewTable(w)
	common.Header(tw, "Name", "Type", "Tags", "Fields", "Description")
	for _, col := range found {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			col.Name(),
			col.TypeTag(),
			len(col.Tags()),
			len(col.Fields()),
			common.OrDash(col.Description()))
	}
	return tw.Flush()
}

// ShowCollector prints one collector with its schema.
func ShowCollector(ctx context.Context, c *meta.Catalog, w io.Writer, name string) error {
	col, err := c.CollectorInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get collector: %w", err)
	}
	if col == nil {
		return fmt.Errorf("collector %s not found", name)
	}

	fmt.Fprintf(w, "Name:        %s\n", col.Name())
	fmt.Fprintf(w, "Type:        %s\n", col.TypeTag())
	fmt.Fprintf(w, "Description: %s\n", common.OrDash(col.Description()))
	printColumns(w, "Tags", col.Tags())
	printColumns(w, "Fields", col.Fields())
	return nil
}

func printColumns(w io.Writer, title string, cols []tdtypes.ColumnMeta) {
	if len(cols) == 0 {
		fmt.Fprintf(w, "%s: none\n", title)
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, col := range cols {
		fmt.Fprintf(w, "  %s\n", col.SQL())
	}
}

// RegisterCollector registers a collector of the given type tag.
func RegisterCollector(ctx context.Context, c *meta.Catalog, w io.Writer, name, description, typeTag string) error {
	if typeTag == "" {
		typeTag = collection.CollectorBaseTag
	}
	col, err := c.Types().NewCollector(typeTag, name, description)
	if err != nil {
		return err
	}
	if err := c.RegisterCollector(ctx, col); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	fmt.Fprintf(w, "Collector %s registered as %s\n", col.Name(), col.TypeTag())
	return nil
}
