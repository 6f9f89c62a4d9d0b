package model

// Operation is the kind of data access a call site performs.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
	OpFilter Operation = "filter"
	OpCall   Operation = "call"
)

// ParseOperation maps a configuration string onto an Operation.
func ParseOperation(s string) (Operation, bool) {
	switch op := Operation(s); op {
	case OpSelect, OpInsert, OpUpdate, OpUpsert, OpDelete, OpFilter, OpCall:
		return op, true
	}
	return "", false
}

// IsWrite reports whether the operation writes record data.
func (o Operation) IsWrite() bool {
	return o == OpInsert || o == OpUpdate || o == OpUpsert
}

// CallSite is one data-access operation recognized in handler source.
type CallSite struct {
	Source    Location  `json:"source"`
	Column    int       `json:"column"`
	Function  string    `json:"function,omitempty"`
	Operation Operation `json:"operation"`
	Table     string    `json:"table,omitempty"`
	Procedure string    `json:"procedure,omitempty"`
	Columns   []string  `json:"columns"`
	Shape     string    `json:"shape"`
}

// Resolved reports whether the call site names its table.
func (c CallSite) Resolved() bool { return c.Table != "" }

// KeyKind classifies a record-key event.
type KeyKind string

const (
	KeyLiteralWrite   KeyKind = "literal-write"
	KeySubscriptWrite KeyKind = "subscript-write"
	KeySubscriptRead  KeyKind = "subscript-read"
	KeyGetRead        KeyKind = "get-read"
)

// IsWrite reports whether the event produces the key.
func (k KeyKind) IsWrite() bool {
	return k == KeyLiteralWrite || k == KeySubscriptWrite
}

// KeyEvent records one constant-string key written to or read from a record.
type KeyEvent struct {
	Key      string  `json:"key"`
	Kind     KeyKind `json:"kind"`
	Function string  `json:"function,omitempty"`
	Line     int     `json:"line"`
}

// Route is an operation declared by the routing configuration.
type Route struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	OperationID string   `json:"operation_id,omitempty"`
	Handler     string   `json:"handler"`
	Source      Location `json:"source"`
}
