package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/mws-orders-client/pkg/orders"
)

// bucketView is one row of the throttle status output.
type bucketView struct {
	Method      string  `json:"method"`
	Bucket      string  `json:"bucket"`
	MaxBurst    int     `json:"max_burst"`
	RestoreRate float64 `json:"restore_rate"`
	Tokens      float64 `json:"tokens"`
	NextTokenIn string  `json:"next_token_in"`

	// Hourly quota from the last response, when one was recorded.
	QuotaRemaining *float64   `json:"quota_remaining,omitempty"`
	QuotaResetsOn  *time.Time `json:"quota_resets_on,omitempty"`
}

func (a *app) newThrottleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "throttle",
		Short: "Show throttle bucket state per method",
		Long: `Show the token bucket each Orders method is charged against.

Without --redis the buckets live in this process only and are always full;
with a shared Redis store the output reflects every process using it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := a.newPack()
			if err != nil {
				return err
			}
			defer pack.Close()

			views, err := bucketViews(cmd, pack)
			if err != nil {
				return err
			}
			return a.renderBuckets(cmd, views)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset METHOD",
		Short: "Refill the bucket a method is charged against",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := a.newPack()
			if err != nil {
				return err
			}
			defer pack.Close()

			m := pack.ThrottleManager()
			if err := m.Reset(cmd.Context(), args[0]); err != nil {
				return err
			}
			bucket, _, _ := m.Bucket(args[0])
			if err := pack.QuotaTracker().Reset(cmd.Context(), bucket); err != nil {
				return err
			}
			fmt.Fprintf(a.out(cmd), "Bucket %s reset\n", bucket)
			return nil
		},
	})
	return cmd
}

func bucketViews(cmd *cobra.Command, pack *orders.Pack) ([]bucketView, error) {
	m := pack.ThrottleManager()
	methods := m.Methods()
	views := make([]bucketView, 0, len(methods))
	for _, method := range methods {
		bucket, limit, err := m.Bucket(method)
		if err != nil {
			return nil, err
		}
		state, err := m.State(cmd.Context(), method)
		if err != nil {
			return nil, err
		}
		view := bucketView{
			Method:      method,
			Bucket:      bucket,
			MaxBurst:    limit.MaxBurst,
			RestoreRate: limit.RestoreRate,
			Tokens:      state.Tokens,
			NextTokenIn: state.TimeUntilToken().Round(100 * time.Millisecond).String(),
		}

		q, ok, err := pack.QuotaTracker().State(cmd.Context(), bucket)
		if err != nil {
			return nil, err
		}
		if ok {
			view.QuotaRemaining = &q.Remaining
			view.QuotaResetsOn = &q.ResetsOn
		}
		views = append(views, view)
	}
	return views, nil
}

func (a *app) renderBuckets(cmd *cobra.Command, views []bucketView) error {
	if a.output == FormatJSON {
		return writeJSON(a.out(cmd), views)
	}

	t := table.NewWriter()
	t.SetOutputMirror(a.out(cmd))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Method", "Bucket", "Burst", "Rate/s", "Tokens", "Next Token", "Hourly Quota"})
	for _, v := range views {
		hourly := "-"
		if v.QuotaRemaining != nil {
			hourly = fmt.Sprintf("%.0f until %s", *v.QuotaRemaining, v.QuotaResetsOn.Local().Format(time.TimeOnly))
		}
		t.AppendRow(table.Row{
			v.Method,
			v.Bucket,
			v.MaxBurst,
			fmt.Sprintf("%.4f", v.RestoreRate),
			fmt.Sprintf("%.2f", v.Tokens),
			v.NextTokenIn,
			hourly,
		})
	}
	t.Render()
	return nil
}
