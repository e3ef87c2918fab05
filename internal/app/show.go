package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"storage-watch/internal/storage"
)

// Info fetches the inventory once and prints it.
func (a *App) Info(ctx context.Context) error {
	if err := a.Config.ValidateAPI(); err != nil {
		return err
	}

	snap, err := a.newFetcher().FetchSnapshot(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Storage weight:\t%s/%d KG\n\n", snap.TotalWeight.String(), a.Config.Monitor.MaxWeight)
	fmt.Fprintln(writer, "Item\tAmount\tSingle (KG)\tTotal (KG)")
	for _, item := range snap.Sorted() {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			sanitizeInline(item.Name),
			item.Amount.String(),
			item.SingleWeight.String(),
			item.TotalWeight.String(),
		)
	}
	return writer.Flush()
}

// Events prints recent journal entries, optionally pruning old ones first.
func (a *App) Events(ctx context.Context, opts EventsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show events")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.PruneAfter > 0 {
		cutoff := time.Now().UTC().Add(-opts.PruneAfter)
		removed, err := store.DeleteEventsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		a.Logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("pruned journal")
	}

	events, err := store.ListRecentEvents(ctx, opts.Limit)
	if err != nil {
		return err
	}
	return writeEvents(os.Stdout, events)
}

func writeEvents(out io.Writer, events []storage.EventRecord) error {
	if len(events) == 0 {
		fmt.Fprintln(out, "no events found")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tKind\tItem\tChange\tWeight\tDelivered\tError")
	for _, ev := range events {
		change := ""
		if ev.Item != "" && !ev.Delta.IsZero() {
			change = fmt.Sprintf("%sx (%s -> %s)", ev.Delta.String(), ev.Previous.String(), ev.Current.String())
		}
		errMsg := ""
		if ev.Error != nil {
			errMsg = sanitizeInline(*ev.Error)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s/%s\t%t\t%s\n",
			ev.CreatedAt.UTC().Format(time.RFC3339),
			ev.Kind,
			sanitizeInline(ev.Item),
			change,
			ev.TotalWeight.String(),
			ev.MaxWeight.String(),
			ev.Delivered,
			errMsg,
		)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
