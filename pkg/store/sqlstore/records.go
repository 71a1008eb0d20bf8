package sqlstore

import (
	"context"
	"fmt"

	"github.com/unisdr/delta/pkg/contracts"
)

// InsertRecord adds an approvable record outside the workflow, for imports
// and fixtures. An empty status is stored as draft.
func (s *Store) InsertRecord(ctx context.Context, rec contracts.ApprovableRecord) error {
	table, err := tableFor(rec.EntityType)
	if err != nil {
		return err
	}
	if rec.Status == "" {
		rec.Status = contracts.StatusDraft
	}
	by := func(st *contracts.Stamp) interface{} {
		if st == nil {
			return nil
		}
		return st.UserID
	}
	at := func(st *contracts.Stamp) interface{} {
		if st == nil {
			return nil
		}
		return s.dialect.timeArg(st.At)
	}
	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO `+table+` (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Status, rec.StartDate, rec.EndDate, rec.Description,
		by(rec.Submitted), at(rec.Submitted),
		by(rec.Validated), at(rec.Validated),
		by(rec.Published), at(rec.Published),
	)
	if err != nil {
		return fmt.Errorf("insert %s %s: %w", rec.EntityType, rec.ID, err)
	}
	return nil
}
