package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/roach88/pastas/internal/model"
)

// WriteModel stores a model dump under its content hash and returns the
// hash. Uses ON CONFLICT(hash) DO NOTHING for idempotency: writing an
// unchanged model again keeps the first record and its seq.
func (s *Store) WriteModel(ctx context.Context, d model.Dump) (string, error) {
	hash, err := ModelHash(d)
	if err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	dump, err := marshalDump(d)
	if err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models (hash, name, dump, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM models))
		ON CONFLICT(hash) DO NOTHING
	`, hash, d.Name, dump)
	if err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	return hash, nil
}

// WriteFit stores a fit of the model with the given hash, together with
// its parameter rows. Bounds and vary flags are taken from rows by name.
// The model must already be stored (foreign key constraint). Writing the
// same fit id twice is a no-op.
func (s *Store) WriteFit(ctx context.Context, modelHash string, fit *model.FitResult, rows []model.Row) error {
	if fit == nil {
		return fmt.Errorf("write fit: nil fit")
	}
	if len(fit.Initial) != len(fit.Names) || len(fit.Optimal) != len(fit.Names) || len(fit.Stderr) != len(fit.Names) {
		return fmt.Errorf("write fit %s: inconsistent parameter columns", fit.ID)
	}
	byName := make(map[string]model.Row, len(rows))
	for _, r := range rows {
		byName[r.Name] = r
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write fit: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO fits
		(id, model_hash, solver, nfev, success, message, cost, tmin, tmax, freq, warmup, noise, nobs, created, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM fits))
		ON CONFLICT(id) DO NOTHING
	`,
		fit.ID,
		modelHash,
		fit.Solver,
		fit.Nfev,
		fit.Success,
		fit.Message,
		nullFloat(fit.Cost),
		formatTime(fit.Tmin),
		formatTime(fit.Tmax),
		string(fit.Freq),
		fit.Warmup,
		fit.Noise,
		fit.NObs,
		formatTime(fit.Created),
	)
	if err != nil {
		return fmt.Errorf("write fit %s: %w", fit.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	for i, name := range fit.Names {
		row, ok := byName[name]
		pmin, pmax, vary := math.NaN(), math.NaN(), true
		if ok {
			pmin, pmax, vary = row.PMin, row.PMax, row.Vary
		}
		if err := writeParameter(ctx, tx, fit.ID, i, name, fit.Initial[i], fit.Optimal[i], fit.Stderr[i], pmin, pmax, vary); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write fit %s: commit: %w", fit.ID, err)
	}
	return nil
}

func writeParameter(ctx context.Context, tx *sql.Tx, fitID string, pos int, name string, initial, optimal, stderr, pmin, pmax float64, vary bool) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fit_parameters (fit_id, position, name, initial, optimal, stderr, pmin, pmax, vary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fitID, pos, name,
		nullFloat(initial), nullFloat(optimal), nullFloat(stderr),
		nullFloat(pmin), nullFloat(pmax), vary,
	)
	if err != nil {
		return fmt.Errorf("write parameter %s of fit %s: %w", name, fitID, err)
	}
	return nil
}
