// Package executors contains the four batch job bodies: transaction
// posting, interest calculation, statement generation, and data
// export/import. All four share one contract: per-record failures are
// recorded on the run result and processing continues; only run-level
// faults (store outage, artifact I/O, bad configuration) return an error
// and abort the run.
package executors

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// recordFault reports whether err is a per-record fault: bad data or a
// missing/inactive referenced entity. Anything else is treated as a
// run-level fault.
func recordFault(err error) bool {
	return errors.Is(err, domain.ErrAccountNotFound) ||
		errors.Is(err, domain.ErrAccountInactive) ||
		errors.Is(err, domain.ErrTransactionNotFound) ||
		errors.Is(err, domain.ErrCustomerNotFound) ||
		errors.Is(err, domain.ErrInvalidRecord)
}

// defaultAsOf returns d, or today when d is unset.
func defaultAsOf(d civil.Date) civil.Date {
	if d.IsValid() {
		return d
	}
	return civil.DateOf(time.Now().UTC())
}

// defaultCycleWindow returns the given window, or the calendar month of
// asOf when either bound is unset.
func defaultCycleWindow(start, end, asOf civil.Date) (civil.Date, civil.Date) {
	if start.IsValid() && end.IsValid() {
		return start, end
	}
	asOf = defaultAsOf(asOf)
	first := civil.Date{Year: asOf.Year, Month: asOf.Month, Day: 1}
	lastDay := time.Date(asOf.Year, asOf.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	last := civil.Date{Year: asOf.Year, Month: asOf.Month, Day: lastDay}
	return first, last
}
