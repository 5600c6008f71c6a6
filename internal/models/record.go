package models

// Record is the common shape of synced entities.
type Record interface {
	RecordID() string
}
