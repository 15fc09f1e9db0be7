// Package store defines the capability contract the workload engine
// requires from a key/value store. All operations are synchronous and
// report a tri-state outcome: success, not-found, or an error. The
// engine decides per call site whether a not-found outcome is benign.
package store

// Status classifies the outcome of a cursor operation.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusError
)

// Result carries the outcome of a cursor operation. Err is only set
// when Status is StatusError.
type Result struct {
	Status Status
	Err    error
}

func OK() Result       { return Result{Status: StatusOK} }
func NotFound() Result { return Result{Status: StatusNotFound} }
func Fail(err error) Result {
	return Result{Status: StatusError, Err: err}
}

// Opener creates connections to a store. The harness reopens its
// connection between the populate and workload phases so the workload
// always starts from persisted state.
type Opener interface {
	Open() (Connection, error)
}

// Connection is a handle to an open store.
type Connection interface {
	OpenSession() (Session, error)
	Close() error
}

// Session is a single-threaded unit of work against a connection.
// Sessions are never shared between workers.
type Session interface {
	OpenCursor(table string) (Cursor, error)
	BeginTransaction() error
	CommitTransaction() error
	Checkpoint() error
	Close() error
}

// Cursor performs operations over a named table. A cursor carries a
// current key and value set by SetKey/SetValue; Search, Insert and
// Update act on them. Insert overwrites an existing record, so callers
// needing absence detection search first. Prev positions the cursor on
// the last key of the table for boundary discovery.
type Cursor interface {
	SetKey(key []byte)
	SetValue(value []byte)
	Search() Result
	Insert() Result
	Update() Result
	Prev() Result
	Key() []byte
	Value() []byte
	Close() error
}
