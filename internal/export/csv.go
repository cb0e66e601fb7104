package export

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/avramid/go-medcab-backend/internal/domain"
)

// CSV renders drugs as a comma-separated file with a header row.
// Expiration dates are formatted in loc.
func CSV(drugs []domain.Drug, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, d := range drugs {
		if err := w.Write(row(d, loc)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
