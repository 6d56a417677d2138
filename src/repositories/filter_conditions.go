package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
)

// FindCondition is one sanitized dynamic predicate. Field and Operator are
// whitelist-checked before they may appear in SQL; Value is always a bound
// parameter, never interpolated.
type FindCondition struct {
	Field    string      // Validated column name.
	Operator string      // One of =, >, <, >=, <=.
	Value    interface{} // Bound query argument.
}

// SchemaSource resolves a table's live column list. Implemented by the entity
// store repository against information_schema; tests substitute a fake.
type SchemaSource interface {
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// SchemaCache memoizes per-table column sets with an explicit, injectable
// lifetime (process-scoped in the server, per-test in suites).
type SchemaCache struct {
	source SchemaSource

	mu      sync.RWMutex
	columns map[string]map[string]struct{}
}

func NewSchemaCache(source SchemaSource) *SchemaCache {
	return &SchemaCache{
		source:  source,
		columns: make(map[string]map[string]struct{}),
	}
}

func (c *SchemaCache) HasColumn(ctx context.Context, table, column string) (bool, error) {
	c.mu.RLock()
	cols, ok := c.columns[table]
	c.mu.RUnlock()

	if !ok {
		list, err := c.source.TableColumns(ctx, table)
		if err != nil {
			return false, fmt.Errorf("SchemaCache.HasColumn - failed to load columns for %s: %w", table, err)
		}

		cols = make(map[string]struct{}, len(list))
		for _, col := range list {
			cols[col] = struct{}{}
		}

		c.mu.Lock()
		c.columns[table] = cols
		c.mu.Unlock()
	}

	_, found := cols[column]
	return found, nil
}

// Forget drops one table's cached columns, for callers that just altered it.
func (c *SchemaCache) Forget(table string) {
	c.mu.Lock()
	delete(c.columns, table)
	c.mu.Unlock()
}

// Recognized comparison-operator suffixes on filter keys, longest first so
// ">=" is not misread as ">".
var operatorSuffixes = []struct {
	suffix   string
	operator string
}{
	{">=", ">="},
	{"<=", "<="},
	{">", ">"},
	{"<", "<"},
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// ParseFilterConditions turns a caller-supplied filter map into sanitized
// conditions for the given table. Every key is reduced to a base identifier by
// stripping a recognized operator suffix, matched against the identifier
// pattern, then checked against the table's live column list. Any unrecognized
// key rejects the entire filter with ErrInvalidFilterColumn; nothing is
// silently dropped.
func ParseFilterConditions(ctx context.Context, cache *SchemaCache, table string, raw json.RawMessage) ([]FindCondition, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var filters map[string]interface{}
	if err := json.Unmarshal(raw, &filters); err != nil {
		return nil, fmt.Errorf("ParseFilterConditions - malformed filter payload: %w", err)
	}

	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conditions := make([]FindCondition, 0, len(keys))
	for _, key := range keys {
		field := key
		operator := "="
		for _, op := range operatorSuffixes {
			if strings.HasSuffix(key, op.suffix) {
				field = strings.TrimSuffix(key, op.suffix)
				operator = op.operator
				break
			}
		}

		if !identifierPattern.MatchString(field) {
			return nil, fmt.Errorf("ParseFilterConditions - key %q is not a valid identifier: %w", key, domain.ErrInvalidFilterColumn)
		}

		found, err := cache.HasColumn(ctx, table, field)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("ParseFilterConditions - column %q does not exist in %s: %w", field, table, domain.ErrInvalidFilterColumn)
		}

		conditions = append(conditions, FindCondition{Field: field, Operator: operator, Value: filters[key]})
	}

	return conditions, nil
}
