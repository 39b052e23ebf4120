// Handler for miscellaneous commands such as the cache summary

package handler

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/yumyai/ggenrich/internal/util"
	"github.com/yumyai/ggenrich/pkg/db"
)

// CacheStatus prints one line per cached KEGG release.
func (app *AppContext) CacheStatus(ctx context.Context, w io.Writer) error {
	path := app.Config.ModuleCachePath()
	if !util.FileExists(path) {
		fmt.Fprintf(w, "No KEGG cache at %s\n", path)
		return nil
	}

	cache, err := db.OpenGGDB(ctx, path)
	if err != nil {
		return err
	}
	defer cache.Close()

	status, err := cache.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "KEGG cache: %s\n", cache.Path())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RELEASE\tMODULES\tUNIVERSE\tNEWEST")
	for _, s := range status {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Release, s.Modules, s.Universe, s.NewestRow.Format(time.RFC3339))
	}
	return tw.Flush()
}
