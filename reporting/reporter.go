package reporting

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"orderflow/auditlog"
	"orderflow/notifier"
)

// Reporter aggregates the audit log over a trailing window and mails the
// result. Each run is independent; a failed run is not retried within the
// run, the next scheduled tick simply starts fresh.
type Reporter struct {
	store    auditlog.Store
	notifier notifier.Notifier
	window   time.Duration
}

func NewReporter(store auditlog.Store, n notifier.Notifier, window time.Duration) *Reporter {
	return &Reporter{store: store, notifier: n, window: window}
}

// Run queries [now-window, now). An empty window is logged and skipped
// without a notification.
func (r *Reporter) Run(ctx context.Context, now time.Time) error {
	from := now.Add(-r.window)

	records, err := r.store.FindWindow(ctx, from, now)
	if err != nil {
		return fmt.Errorf("query report window: %w", err)
	}

	log.Printf("Report window [%s, %s): %d audit records",
		from.Format("2006-01-02 15:04:05"), now.Format("2006-01-02 15:04:05"), len(records))

	if len(records) == 0 {
		log.Printf("No order activity in the last %s, skipping notification", r.window)
		return nil
	}

	subject, body := FormatReport(records, now, r.window)
	if err := r.notifier.Notify(subject, body); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	log.Printf("Report with %d records delivered", len(records))
	return nil
}

// FormatReport renders the summary and detail table as an HTML mail body.
// Monetary values use two decimal places, timestamps a sortable form.
func FormatReport(records []auditlog.Record, reportTime time.Time, window time.Duration) (string, string) {
	var totalRevenue float64
	for _, rec := range records {
		totalRevenue += rec.TotalPrice
	}

	subject := fmt.Sprintf("Order Audit Report - %s", reportTime.Format("2006-01-02 15:04"))

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Order Audit Report (last %s)</h1>", window)
	fmt.Fprintf(&b, "<p>%d new order event(s) in the reporting period.</p>", len(records))
	fmt.Fprintf(&b, "<p>Total revenue: <b>%.2f</b></p>", totalRevenue)
	b.WriteString("<hr/><h2>Details</h2>")

	b.WriteString("<table border='1' cellpadding='6' cellspacing='0'>")
	b.WriteString("<tr><th>Order ID</th><th>Customer ID</th><th>Product ID</th><th>Product Name</th>" +
		"<th>Event Type</th><th>Quantity</th><th>Total Price</th><th>Created At</th></tr>")

	for _, rec := range records {
		// String fields originate from caller input; escape them so a
		// product name cannot inject markup into the mail body.
		fmt.Fprintf(&b,
			"<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%.2f</td><td>%s</td></tr>",
			html.EscapeString(rec.OrderID), html.EscapeString(rec.CustomerID),
			html.EscapeString(rec.ProductID), html.EscapeString(rec.ProductName),
			html.EscapeString(rec.EventType), rec.Quantity, rec.TotalPrice,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	b.WriteString("</table>")
	b.WriteString("<p>This report was generated automatically by the audit worker.</p>")

	return subject, b.String()
}
