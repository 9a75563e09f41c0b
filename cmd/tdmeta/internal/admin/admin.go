// Package admin implements the catalog maintenance commands.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/common"
	"github.com/redbco/tdmeta/pkg/collection/meta"
	"github.com/redbco/tdmeta/pkg/health"
)

// ErrUnhealthy is returned by Health when any check fails.
var ErrUnhealthy = errors.New("health check failed")

// InitCatalog creates the catalog database and system tables. With reset the
// existing catalog is dropped first.
func InitCatalog(ctx context.Context, c *meta.Catalog, w io.Writer, reset bool) error {
	outcome, err := c.Init(ctx, reset)
	if err != nil {
		return fmt.Errorf("catalog init %s: %w", outcome, err)
	}
	switch outcome {
	case meta.InitCreated:
		fmt.Fprintf(w, "Catalog %s created\n", c.Database())
	case meta.InitReset:
		fmt.Fprintf(w, "Catalog %s reset\n", c.Database())
	default:
		fmt.Fprintf(w, "Catalog %s already exists\n", c.Database())
	}
	return nil
}

// Health runs every check and prints the results.
func Health(ctx context.Context, checker *health.Checker, w io.Writer) error {
	status := checker.RunAll(ctx)

	tw := common.NewTable(w)
	common.Header(tw, "Check", "Status", "Duration", "Message")
	for _, check := range checker.Checks() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", check.Name, check.Status, check.Duration.Round(time.Millisecond), check.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nOverall: %s\n", status)

	if status != health.StatusHealthy {
		return ErrUnhealthy
	}
	return nil
}
