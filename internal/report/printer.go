package report

import (
	"bufio"
	"fmt"
	"io"

	"steam-achiever/internal/domain"
)

// Printer writes progress rows as plain text, one line per game.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes rows in the order given:
//
//	 60% ( 3 of  5, + 2) Portal 2
//
// Counts wider than the padding are printed in full.
func (p *Printer) Print(rows []domain.ProgressRow) error {
	bw := bufio.NewWriter(p.w)
	for _, r := range rows {
		if _, err := fmt.Fprintf(bw, "%3d%% (%2d of %2d, +%2d) %s\n", r.Percent, r.Achieved, r.Total, r.Remaining, r.Name); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
