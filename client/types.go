package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a batch, job or group. The service issues numeric ids for
// batches and jobs; ID keeps their literal text. Ids in canonical decimal
// integer form are written as JSON numbers, every other id as a JSON string.
type ID string

func (id ID) String() string {
	return string(id)
}

// MarshalJSON encodes canonical integer ids as JSON numbers and anything else
// as a JSON string. "007", "+5" and ids outside the int64 range are strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.canonicalInt() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// canonicalInt reports whether id is a decimal int64 with no sign and no
// leading zero, which is also a valid JSON number.
func (id ID) canonicalInt() bool {
	s := string(id)
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %v", data, err)
	}
	*id = ID(n.String())
	return nil
}

// Status is the remote lifecycle state of a batch or job.
type Status string

// Known statuses. The service may report others; they are treated as settled.
const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusDone    Status = "DONE"
	StatusError   Status = "ERROR"
)

// Pending returns true if the status is PENDING or RUNNING, i.e. the remote
// computation has not settled yet.
func (s Status) Pending() bool {
	return s == StatusPending || s == StatusRunning
}

// ValueKind tags the variant held by a Value.
type ValueKind int

// Value variants.
const (
	InvalidValue ValueKind = iota
	NumberValue
	StringValue
	SequenceValue
)

func (k ValueKind) String() string {
	switch k {
	case NumberValue:
		return "number"
	case StringValue:
		return "string"
	case SequenceValue:
		return "sequence"
	}
	return "invalid"
}

// Value is a job variable binding: a number, a string or a sequence of
// numbers. Numbers keep their JSON literal so they round-trip without
// precision loss.
type Value struct {
	kind ValueKind
	num  json.Number
	str  string
	seq  []json.Number
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: NumberValue, num: formatFloat(f)}
}

// Int returns an integral numeric Value.
func Int(i int64) Value {
	return Value{kind: NumberValue, num: json.Number(strconv.FormatInt(i, 10))}
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: StringValue, str: s}
}

// Sequence returns a Value holding an ordered sequence of numbers.
func Sequence(fs ...float64) Value {
	seq := make([]json.Number, len(fs))
	for i, f := range fs {
		seq[i] = formatFloat(f)
	}
	return Value{kind: SequenceValue, seq: seq}
}

func formatFloat(f float64) json.Number {
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind {
	return v.kind
}

// Float returns the number held by v.
func (v Value) Float() (float64, bool) {
	if v.kind != NumberValue {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// Text returns the string held by v.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == StringValue
}

// Floats returns the sequence held by v.
func (v Value) Floats() ([]float64, bool) {
	if v.kind != SequenceValue {
		return nil, false
	}
	out := make([]float64, len(v.seq))
	for i, n := range v.seq {
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case NumberValue:
		return []byte(v.num), nil
	case StringValue:
		return json.Marshal(v.str)
	case SequenceValue:
		seq := v.seq
		if seq == nil {
			seq = []json.Number{}
		}
		return json.Marshal(seq)
	}
	return nil, fmt.Errorf("cannot marshal %s variable value", v.kind)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch x := raw.(type) {
	case json.Number:
		*v = Value{kind: NumberValue, num: x}
	case string:
		*v = Value{kind: StringValue, str: x}
	case []interface{}:
		seq := make([]json.Number, len(x))
		for i, el := range x {
			n, ok := el.(json.Number)
			if !ok {
				return fmt.Errorf("variable sequence element %d is not a number: %v", i, el)
			}
			seq[i] = n
		}
		*v = Value{kind: SequenceValue, seq: seq}
	default:
		return fmt.Errorf("unsupported variable value %s: expected number, string or sequence of numbers", data)
	}
	return nil
}

// Variables binds variable names to values for one job.
type Variables map[string]Value

// Result maps an outcome label (e.g. a bitstring) to the number of times it
// was observed. A nil Result means the job has no result yet.
type Result map[string]int64

// Present returns true if the result has been produced.
func (r Result) Present() bool {
	return r != nil
}

// BatchData is the batch resource as returned by the core service.
type BatchData struct {
	ID              ID     `json:"id"`
	SequenceBuilder string `json:"sequence_builder"`
	Emulator        bool   `json:"emulator"`
	Complete        bool   `json:"complete"`
	Status          Status `json:"status"`
	GroupID         ID     `json:"group_id,omitempty"`
	Webhook         string `json:"webhook,omitempty"`
	DeviceType      string `json:"device_type,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// JobData is the job resource as returned by the core service.
type JobData struct {
	ID        ID        `json:"id"`
	BatchID   ID        `json:"batch_id"`
	Runs      int       `json:"runs"`
	Variables Variables `json:"variables,omitempty"`
	Status    Status    `json:"status"`
	Result    Result    `json:"result"`
	CreatedAt string    `json:"created_at,omitempty"`
	UpdatedAt string    `json:"updated_at,omitempty"`
}

// JobSpec describes a job submitted together with its batch.
type JobSpec struct {
	Runs      int       `json:"runs"`
	Variables Variables `json:"variables,omitempty"`
}

// BatchRequest is the payload of a batch submission. GroupID is filled in by
// the client.
type BatchRequest struct {
	SequenceBuilder string    `json:"sequence_builder"`
	Emulator        bool      `json:"emulator"`
	Webhook         string    `json:"webhook,omitempty"`
	Jobs            []JobSpec `json:"jobs"`
	GroupID         ID        `json:"group_id"`
}

// JobRequest is the payload of a job added to an existing batch.
type JobRequest struct {
	BatchID   ID        `json:"batch_id"`
	Runs      int       `json:"runs"`
	Variables Variables `json:"variables,omitempty"`
}
