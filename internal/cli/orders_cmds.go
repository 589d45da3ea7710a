package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/mws-orders-client/pkg/mws"
	"github.com/Sternrassler/mws-orders-client/pkg/orders"
	"github.com/Sternrassler/mws-orders-client/pkg/pagination"
)

// MWS rejects CreatedBefore values later than two minutes before now.
const createdBeforeMargin = 2 * time.Minute

// dateRange holds the --from/--to flags of the list commands.
type dateRange struct {
	from     string
	to       string
	all      bool
	maxPages int
}

func (d *dateRange) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.from, "from", "", "created after (RFC 3339 or YYYY-MM-DD; default 24h before --to)")
	cmd.Flags().StringVar(&d.to, "to", "", "created before (RFC 3339 or YYYY-MM-DD; default now minus 2m)")
	cmd.Flags().BoolVar(&d.all, "all", false, "follow NextToken and fetch every page")
	cmd.Flags().IntVar(&d.maxPages, "max-pages", pagination.DefaultConfig().MaxPages, "page limit with --all (0 for none)")
}

// resolve parses the flags relative to now.
func (d *dateRange) resolve(now time.Time) (time.Time, time.Time, error) {
	to := now.Add(-createdBeforeMargin)
	if d.to != "" {
		t, err := parseDate(d.to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		to = t
	}

	from := to.Add(-24 * time.Hour)
	if d.from != "" {
		t, err := parseDate(d.from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		from = t
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want RFC 3339 or YYYY-MM-DD)", s)
	}
	return t, nil
}

func (a *app) newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ORDER_ID[,ORDER_ID...] [ORDER_ID...]",
		Short: "Fetch orders by Amazon order id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := a.newPack()
			if err != nil {
				return err
			}
			defer pack.Close()

			var resp *mws.Response
			if len(args) == 1 {
				resp, err = pack.GetOrderCSV(cmd.Context(), args[0])
			} else {
				resp, err = pack.GetOrder(cmd.Context(), args)
			}
			if err != nil {
				return err
			}
			return a.renderResponse(cmd, resp)
		},
	}
}

func (a *app) newListCommand() *cobra.Command {
	var dates dateRange

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders created in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd, &dates, nil)
		},
	}
	dates.register(cmd)
	return cmd
}

func (a *app) newStatusCommand() *cobra.Command {
	var dates dateRange

	cmd := &cobra.Command{
		Use:   "status STATUS...",
		Short: "List orders created in a date range with the given statuses",
		Long: "List orders created in a date range with the given statuses.\n\nStatuses: " +
			strings.Join(orders.Statuses, ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range args {
				if !validStatus(s) {
					return fmt.Errorf("unknown order status %q (valid: %s)", s, strings.Join(orders.Statuses, ", "))
				}
			}
			return a.runList(cmd, &dates, args)
		},
	}
	dates.register(cmd)
	return cmd
}

func validStatus(s string) bool {
	for _, v := range orders.Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (a *app) runList(cmd *cobra.Command, dates *dateRange, statuses []string) error {
	from, to, err := dates.resolve(time.Now())
	if err != nil {
		return err
	}

	pack, err := a.newPack()
	if err != nil {
		return err
	}
	defer pack.Close()

	if dates.all {
		walker := pagination.NewWalker[orders.Order](pack.OrderPager(from, to, statuses), pagination.Config{
			MaxPages: dates.maxPages,
			Timeout:  pagination.DefaultConfig().Timeout,
		})
		all, err := walker.FetchAll(cmd.Context())
		if err != nil && len(all) == 0 {
			return err
		}
		if renderErr := a.renderList(cmd, &orders.OrderList{Orders: all}); renderErr != nil {
			return renderErr
		}
		return err
	}

	var resp *mws.Response
	if len(statuses) == 0 {
		resp, err = pack.ListOrdersByCreateDate(cmd.Context(), from, to)
	} else {
		resp, err = pack.ListOrdersWithStatus(cmd.Context(), from, to, statuses)
	}
	if err != nil {
		return err
	}
	return a.renderResponse(cmd, resp)
}

func (a *app) newNextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next NEXT_TOKEN",
		Short: "Fetch the next page of an order listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := a.newPack()
			if err != nil {
				return err
			}
			defer pack.Close()

			resp, err := pack.ListOrdersByNextToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderResponse(cmd, resp)
		},
	}
}

func (a *app) renderResponse(cmd *cobra.Command, resp *mws.Response) error {
	list, err := orders.DecodeOrderList(resp)
	if err != nil {
		return err
	}
	return a.renderList(cmd, list)
}
