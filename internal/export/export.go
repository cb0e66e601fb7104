// Package export renders a drug list as downloadable CSV or PDF bytes.
// The HTTP layer owns content negotiation and headers; this package only
// produces the payloads. Both renderers share one column layout so the two
// formats stay in sync.
package export

import (
	"time"

	"github.com/avramid/go-medcab-backend/internal/domain"
)

// expirationLayout renders expiration dates as the year-month printed on the
// package; day and time are an internal normalization detail.
const expirationLayout = "2006-01"

var header = []string{"Name", "Form", "Expiration", "Description", "Alert sent"}

// row flattens one drug into the shared column layout.
func row(d domain.Drug, loc *time.Location) []string {
	alert := "no"
	if d.AlertSent {
		alert = "yes"
	}
	return []string{
		d.Name,
		domain.Form(d.Form).Label(),
		d.ExpirationDate.In(loc).Format(expirationLayout),
		d.Description,
		alert,
	}
}
