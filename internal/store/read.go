package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/timeseries"
)

// ModelRecord is a stored model.
type ModelRecord struct {
	Hash string
	Name string
	Seq  int64
	Dump model.Dump
}

// Parameter is a stored parameter row of a fit.
type Parameter struct {
	Name    string
	Initial float64
	Optimal float64
	Stderr  float64
	PMin    float64
	PMax    float64
	Vary    bool
}

// FitRecord is a stored fit. Parameters is only filled by ReadFit.
type FitRecord struct {
	ModelHash  string
	Seq        int64
	Fit        model.FitResult
	Parameters []Parameter
}

// ReadModel returns the model stored under hash. Returns ErrNotFound if
// there is none.
func (s *Store) ReadModel(ctx context.Context, hash string) (ModelRecord, error) {
	var (
		rec  ModelRecord
		dump string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, name, dump, seq FROM models WHERE hash = ?
	`, hash).Scan(&rec.Hash, &rec.Name, &dump, &rec.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelRecord{}, fmt.Errorf("model %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return ModelRecord{}, fmt.Errorf("read model %s: %w", hash, err)
	}
	rec.Dump, err = unmarshalDump(dump)
	if err != nil {
		return ModelRecord{}, fmt.Errorf("read model %s: %w", hash, err)
	}
	return rec, nil
}

// ReadFit returns the fit with the given id and its parameter rows.
// Returns ErrNotFound if there is none.
func (s *Store) ReadFit(ctx context.Context, id string) (FitRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model_hash, solver, nfev, success, message, cost, tmin, tmax, freq, warmup, noise, nobs, created, seq
		FROM fits
		WHERE id = ?
	`, id)
	rec, err := scanFit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FitRecord{}, fmt.Errorf("fit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return FitRecord{}, err
	}

	rec.Parameters, err = s.readParameters(ctx, id)
	if err != nil {
		return FitRecord{}, err
	}
	f := &rec.Fit
	f.Names = make([]string, len(rec.Parameters))
	f.Initial = make([]float64, len(rec.Parameters))
	f.Optimal = make([]float64, len(rec.Parameters))
	f.Stderr = make([]float64, len(rec.Parameters))
	for i, p := range rec.Parameters {
		f.Names[i], f.Initial[i], f.Optimal[i], f.Stderr[i] = p.Name, p.Initial, p.Optimal, p.Stderr
	}
	return rec, nil
}

// ListFits returns the fits of a model, or of all models when modelHash is
// empty, ordered by seq ASC, id ASC COLLATE BINARY. Parameters are not
// loaded. Returns an empty slice (not nil) if there are none.
func (s *Store) ListFits(ctx context.Context, modelHash string) ([]FitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model_hash, solver, nfev, success, message, cost, tmin, tmax, freq, warmup, noise, nobs, created, seq
		FROM fits
		WHERE ? = '' OR model_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, modelHash, modelHash)
	if err != nil {
		return nil, fmt.Errorf("query fits: %w", err)
	}
	defer rows.Close()

	fits := []FitRecord{}
	for rows.Next() {
		rec, err := scanFit(rows)
		if err != nil {
			return nil, err
		}
		fits = append(fits, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fits: %w", err)
	}
	return fits, nil
}

func (s *Store) readParameters(ctx context.Context, fitID string) ([]Parameter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, initial, optimal, stderr, pmin, pmax, vary
		FROM fit_parameters
		WHERE fit_id = ?
		ORDER BY position ASC
	`, fitID)
	if err != nil {
		return nil, fmt.Errorf("query parameters of fit %s: %w", fitID, err)
	}
	defer rows.Close()

	params := []Parameter{}
	for rows.Next() {
		var (
			p                                    Parameter
			initial, optimal, stderr, pmin, pmax sql.NullFloat64
		)
		if err := rows.Scan(&p.Name, &initial, &optimal, &stderr, &pmin, &pmax, &p.Vary); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		p.Initial, p.Optimal, p.Stderr = floatOf(initial), floatOf(optimal), floatOf(stderr)
		p.PMin, p.PMax = floatOf(pmin), floatOf(pmax)
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parameters: %w", err)
	}
	return params, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFit(row scanner) (FitRecord, error) {
	var (
		rec                 FitRecord
		cost                sql.NullFloat64
		tmin, tmax, created string
		freq                string
	)
	f := &rec.Fit
	err := row.Scan(&f.ID, &rec.ModelHash, &f.Solver, &f.Nfev, &f.Success, &f.Message, &cost,
		&tmin, &tmax, &freq, &f.Warmup, &f.Noise, &f.NObs, &created, &rec.Seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FitRecord{}, err
		}
		return FitRecord{}, fmt.Errorf("scan fit: %w", err)
	}
	f.Cost = floatOf(cost)
	f.Freq = timeseries.Freq(freq)
	if f.Tmin, err = parseTime(tmin); err != nil {
		return FitRecord{}, err
	}
	if f.Tmax, err = parseTime(tmax); err != nil {
		return FitRecord{}, err
	}
	if f.Created, err = parseTime(created); err != nil {
		return FitRecord{}, err
	}
	return rec, nil
}
