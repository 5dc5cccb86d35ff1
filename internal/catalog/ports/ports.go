// Package ports defines the business-data query contract every fetcher reads through:
// entity-scoped get and list by store id, with filter conditions and a page token.
package ports

import (
	"context"
	"time"
)

// Entity is what a repository can store and filter.
type Entity interface {
	EntityID() string
	EntityStoreID() string
	EntityCreatedAt() time.Time
	// Field returns the string form of a queryable field.
	Field(name string) (string, bool)
}

// Op is a condition operator.
type Op int

const (
	OpEq Op = iota
	// OpContains is a case-insensitive substring match.
	OpContains
	OpIn
)

// Condition restricts a list query on one field.
type Condition struct {
	Field  string
	Op     Op
	Value  string
	Values []string
}

func Eq(field, value string) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

func Contains(field, value string) Condition {
	return Condition{Field: field, Op: OpContains, Value: value}
}

func In(field string, values ...string) Condition {
	return Condition{Field: field, Op: OpIn, Values: values}
}

// Query is a filtered, paginated list request. Results are ordered newest first.
type Query struct {
	Conditions []Condition
	Limit      int
	Token      string
}

// Page is one page of results. An empty NextToken means there are no more.
type Page[T any] struct {
	Items     []T
	NextToken string
}

// Repository is the business-data query contract.
// Get returns sentinel.ErrNotFound when the entity does not exist in the store.
type Repository[T Entity] interface {
	Get(ctx context.Context, storeID, id string) (T, error)
	List(ctx context.Context, storeID string, q Query) (Page[T], error)
}
