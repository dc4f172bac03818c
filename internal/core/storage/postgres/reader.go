package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JFreegman/toxstats/internal/core/aggregation"
)

func (a *Adapter) ScanCounts(ctx context.Context, g aggregation.Granularity, country string, limit int) ([]aggregation.NodeCount, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("scan counts: invalid granularity %d", int(g))
	}
	rows, err := a.db.QueryContext(ctx, queryScanCounts, g.KeyLength(), country, limit)
	if err != nil {
		return nil, fmt.Errorf("scan counts: %w", err)
	}
	defer rows.Close()
	return a.scanNodeCounts(rows)
}

func (a *Adapter) CountsAt(ctx context.Context, p aggregation.Period) ([]aggregation.NodeCount, error) {
	rows, err := a.db.QueryContext(ctx, queryCountsAt, p.Key())
	if err != nil {
		return nil, fmt.Errorf("counts at %s: %w", p, err)
	}
	defer rows.Close()
	return a.scanNodeCounts(rows)
}

func (a *Adapter) HasPeriod(ctx context.Context, p aggregation.Period) (bool, error) {
	var exists bool
	if err := a.db.QueryRowContext(ctx, queryHasPeriod, p.Key(), aggregation.CountryAll).Scan(&exists); err != nil {
		return false, fmt.Errorf("has period %s: %w", p, err)
	}
	return exists, nil
}

func (a *Adapter) Countries(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, queryCountries, aggregation.GranularityYear.KeyLength(), aggregation.CountryAll)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("list countries: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list countries: rows error: %w", err)
	}
	return out, nil
}

func (a *Adapter) scanNodeCounts(rows *sql.Rows) ([]aggregation.NodeCount, error) {
	var out []aggregation.NodeCount
	for rows.Next() {
		var (
			key string
			nc  aggregation.NodeCount
		)
		if err := rows.Scan(&key, &nc.Country, &nc.Nodes); err != nil {
			return nil, fmt.Errorf("scan node count row: %w", err)
		}
		p, err := aggregation.ParsePeriodKey(key, a.tickMinutes)
		if err != nil {
			return nil, err
		}
		nc.Period = p
		out = append(out, nc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("node count rows error: %w", err)
	}
	return out, nil
}
