package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
	"github.com/blockwatch-labs/tzindexer/internal/metadata"
	"github.com/blockwatch-labs/tzindexer/pkg/schema"
)

// maxRowLimit bounds every query regardless of the caller's requested
// Limit, and defaultRowLimit applies when the caller omits one.
const (
	maxRowLimit     = 1000
	defaultRowLimit = 100
	queryTimeout    = 10 * time.Second
)

// Engine resolves entity paths through MetadataService, validates
// queries against the physical schema, and executes the resulting SQL
// against the indexed tables.
type Engine struct {
	db       *dbconn.Client
	schema   schema.Registry
	metadata *metadata.Service
	cache    *ValueCache
}

// New builds an Engine bound to one platform/network schema's database
// connection, schema registry, and metadata service.
func New(db *dbconn.Client, registry schema.Registry, meta *metadata.Service) *Engine {
	return &Engine{db: db, schema: registry, metadata: meta, cache: NewValueCache()}
}

// Row is one result row, keyed by output column name.
type Row map[string]any

// Run validates q against platform/network/entity and executes it,
// returning the matched rows in entity-order.
func (e *Engine) Run(ctx context.Context, platform, network, entity string, q Query) ([]Row, error) {
	if !e.metadata.EntityVisible(platform, network, entity) {
		return nil, &metadata.HiddenPathError{Path: entity}
	}

	physical, ok := e.schema.FindEntity(platform, network, entity)
	if !ok {
		return nil, &metadata.UnknownPathError{Path: entity}
	}

	stmt, args, err := e.compile(platform, network, entity, physical, q)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := e.db.Query(queryCtx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query: execute: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("query: scan: %w", err)
		}
		row := make(Row, len(values))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: iterate: %w", err)
	}
	return out, nil
}

// AttributeValues returns the distinct values for one cardinality-safe
// attribute, consulting the cache before falling back to a prefix-bound
// LIKE query against the live table.
func (e *Engine) AttributeValues(ctx context.Context, platform, network, entity, attribute, prefix string) ([]string, error) {
	if _, err := e.metadata.ResolveAttribute(platform, network, entity, attribute); err != nil {
		return nil, err
	}

	cacheKey := platform + "/" + network + "/" + entity + "/" + attribute
	if values, ok := e.cache.Get(cacheKey); ok {
		return filterPrefix(values, prefix), nil
	}

	physical, ok := e.schema.FindEntity(platform, network, entity)
	if !ok {
		return nil, &metadata.UnknownPathError{Path: entity}
	}
	col, ok := physical.FindColumn(attribute)
	if !ok {
		return nil, &metadata.UnknownPathError{Path: attribute}
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stmt := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s LIKE $1 ORDER BY %s LIMIT %d`,
		quoteIdent(col.Name), quoteQualifiedTable(e.db.Schema, physical.Table), quoteIdent(col.Name), quoteIdent(col.Name), maxRowLimit)

	rows, err := e.db.Query(queryCtx, stmt, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("query: attribute values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// RefreshCache reloads the cardinality-safe attribute-value cache for
// one attribute's distinct values, skipping the refresh if another
// refresh for the same key is already in flight.
func (e *Engine) RefreshCache(ctx context.Context, platform, network, entity, attribute string, cfg metadata.CacheConfig) error {
	cacheKey := platform + "/" + network + "/" + entity + "/" + attribute
	if !e.cache.BeginRefresh(cacheKey) {
		return nil
	}
	defer e.cache.EndRefresh(cacheKey)

	physical, ok := e.schema.FindEntity(platform, network, entity)
	if !ok {
		return &metadata.UnknownPathError{Path: entity}
	}
	col, ok := physical.FindColumn(attribute)
	if !ok {
		return &metadata.UnknownPathError{Path: attribute}
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stmt := fmt.Sprintf(`SELECT DISTINCT %s FROM %s ORDER BY %s LIMIT %d`,
		quoteIdent(col.Name), quoteQualifiedTable(e.db.Schema, physical.Table), quoteIdent(col.Name), maxRowLimit)

	rows, err := e.db.Query(queryCtx, stmt)
	if err != nil {
		return fmt.Errorf("query: refresh cache: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	e.cache.Set(cacheKey, values, time.Duration(cfg.TTL)*time.Second)
	return nil
}

func filterPrefix(values []string, prefix string) []string {
	if prefix == "" {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}
