package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/mws-orders-client/pkg/orders"
)

func (a *app) renderList(cmd *cobra.Command, list *orders.OrderList) error {
	w := a.out(cmd)
	if a.output == FormatJSON {
		return writeJSON(w, list)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Order", "Purchased", "Status", "Channel", "Total", "Items"})

	for _, o := range list.Orders {
		t.AppendRow(table.Row{
			o.AmazonOrderID,
			formatTimestamp(o.PurchaseDate),
			o.OrderStatus,
			o.FulfillmentChannel,
			formatMoney(o.OrderTotal),
			o.NumberOfItemsShipped + o.NumberOfItemsUnshipped,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Orders", len(list.Orders)})
	t.Render()

	if list.NextToken != "" {
		fmt.Fprintf(w, "\nMore results: mws-orders next %s\n", list.NextToken)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateTime)
}

func formatMoney(m *orders.Money) string {
	if m == nil || m.Amount == "" {
		return "-"
	}
	return m.Amount + " " + m.CurrencyCode
}
