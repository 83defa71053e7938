// Package roster imports and exports the unit roster as CSV.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zulandar/lineside/internal/progress"
	"github.com/zulandar/lineside/internal/report"
	"gorm.io/gorm"
)

// ErrMissingSerialHeader is returned when the import CSV has no "serial"
// column.
var ErrMissingSerialHeader = errors.New(`csv needs a "serial" header column`)

// Import reads a CSV roster and creates a unit with a full pending
// checklist for each new serial. Blank serials and serials that already
// exist are skipped silently. Returns the number of units added.
func Import(db *gorm.DB, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return 0, fmt.Errorf("roster: import: %w", ErrMissingSerialHeader)
		}
		return 0, fmt.Errorf("roster: read header: %w", err)
	}

	serialCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "serial") {
			serialCol = i
			break
		}
	}
	if serialCol < 0 {
		return 0, fmt.Errorf("roster: import: %w", ErrMissingSerialHeader)
	}

	added := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, fmt.Errorf("roster: read row: %w", err)
		}
		if serialCol >= len(record) {
			continue
		}
		serial := strings.TrimSpace(record[serialCol])
		if serial == "" {
			continue
		}

		_, err = progress.CreateUnit(db, serial)
		if err != nil {
			if errors.Is(err, progress.ErrDuplicateSerial) {
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}

// Export writes the roster projection as CSV: serial plus a status/notes
// column pair per active step, one row per unit ordered by serial.
func Export(db *gorm.DB, w io.Writer) error {
	header, rows, err := report.ExportRows(db)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("roster: write header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("roster: write row %s: %w", row[0], err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("roster: flush: %w", err)
	}
	return nil
}
