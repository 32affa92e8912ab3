package registry

import (
	"github.com/hashicorp/go-memdb"

	"hlswatch/incident"
)

// incidentRecord is the go-memdb row shape. Kept a thin copy of
// incident.Incident rather than storing the struct directly so the
// unique "id" index and non-unique "stream_id" index have concrete
// Go fields to index on, matching the teacher's database/memdb.go
// Concurrency row (M3UIndex/Count) shape.
type incidentRecord struct {
	ID       string
	StreamID string
	Incident incident.Incident
}

// newIncidentSchema builds the go-memdb schema for the "incidents"
// table, adapted from the teacher's single unique-int-indexed
// "concurrency" table into one table carrying a unique "id" index
// (for acknowledge/get-by-id) and a non-unique "stream_id" index (for
// list_incidents(stream_id=...) queries).
func newIncidentSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"incidents": {
				Name: "incidents",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"stream_id": {
						Name:    "stream_id",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "StreamID"},
					},
				},
			},
		},
	}
}

// incidentIndex wraps a go-memdb instance with the txn boilerplate the
// teacher repeats in every database/memdb.go accessor (begin txn,
// First/Get, Insert, Commit/Abort).
type incidentIndex struct {
	db *memdb.MemDB
}

func newIncidentIndex() (*incidentIndex, error) {
	db, err := memdb.NewMemDB(newIncidentSchema())
	if err != nil {
		return nil, err
	}
	return &incidentIndex{db: db}, nil
}

// Put inserts or replaces an incident row.
func (ix *incidentIndex) Put(inc incident.Incident) error {
	txn := ix.db.Txn(true)
	defer txn.Commit()

	return txn.Insert("incidents", &incidentRecord{ID: inc.ID, StreamID: inc.StreamID, Incident: inc})
}

// Get fetches one incident by id.
func (ix *incidentIndex) Get(id string) (incident.Incident, bool, error) {
	txn := ix.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First("incidents", "id", id)
	if err != nil {
		return incident.Incident{}, false, err
	}
	if raw == nil {
		return incident.Incident{}, false, nil
	}
	return raw.(*incidentRecord).Incident, true, nil
}

// ByStream returns every indexed incident for one stream.
func (ix *incidentIndex) ByStream(streamID string) ([]incident.Incident, error) {
	txn := ix.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("incidents", "stream_id", streamID)
	if err != nil {
		return nil, err
	}

	var out []incident.Incident
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*incidentRecord).Incident)
	}
	return out, nil
}

// All returns every indexed incident across every stream.
func (ix *incidentIndex) All() ([]incident.Incident, error) {
	txn := ix.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("incidents", "id")
	if err != nil {
		return nil, err
	}

	var out []incident.Incident
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*incidentRecord).Incident)
	}
	return out, nil
}

// Delete removes every row for a stream, called on stream deletion.
func (ix *incidentIndex) DeleteStream(streamID string) error {
	txn := ix.db.Txn(true)
	defer txn.Commit()

	_, err := txn.DeleteAll("incidents", "stream_id", streamID)
	return err
}
