package models

import "encoding/json"

// Salon data collections. Every document carries the ownerId of the account that created it.
const (
	CollectionContacts     = "Contacts"
	CollectionServices     = "Services"
	CollectionProcedures   = "Procedures"
	CollectionAppointments = "Appointments"
	CollectionTransactions = "Transactions"
)

var ownerScopedCollections = map[string]bool{
	CollectionContacts:     true,
	CollectionServices:     true,
	CollectionProcedures:   true,
	CollectionAppointments: true,
	CollectionTransactions: true,
}

// IsOwnerScopedCollection reports whether name is one of the salon data collections.
func IsOwnerScopedCollection(name string) bool {
	return ownerScopedCollections[name]
}

// Reserved document fields managed by the server.
const (
	FieldOwnerID   = "ownerId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record is a schemaless document from an owner-scoped collection.
type Record struct {
	ID   string
	Data map[string]interface{}
}

// MarshalJSON flattens the document fields next to its id.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Data)+1)
	for k, v := range r.Data {
		out[k] = v
	}
	out["id"] = r.ID
	return json.Marshal(out)
}

// OwnerID returns the ownerId field, or "" when absent.
func (r Record) OwnerID() string {
	owner, _ := r.Data[FieldOwnerID].(string)
	return owner
}

// EqualityFilter is an optional extra field == value constraint.
type EqualityFilter struct {
	Field string
	Value interface{}
}

// OwnerScopedQuery defines a live or one-shot view over one collection for one owner.
type OwnerScopedQuery struct {
	Collection string
	OwnerID    string
	Filter     *EqualityFilter
}
