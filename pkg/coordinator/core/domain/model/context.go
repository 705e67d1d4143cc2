package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ExecutionContext is a key-value store for free-form input/output and diagnostic
// payloads attached to execution records, queue items, and state entries.
type ExecutionContext map[string]interface{}

// Value implements the `driver.Valuer` interface, converting the ExecutionContext to a JSON string.
func (ec ExecutionContext) Value() (driver.Value, error) {
	if ec == nil {
		return "{}", nil
	}
	data, err := json.Marshal(ec)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to an ExecutionContext.
func (ec *ExecutionContext) Scan(value interface{}) error {
	if value == nil {
		*ec = make(ExecutionContext)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for ExecutionContext: %T", value)
	}

	if len(b) == 0 {
		*ec = make(ExecutionContext)
		return nil
	}

	if err := json.Unmarshal(b, ec); err != nil {
		return fmt.Errorf("failed to unmarshal ExecutionContext JSON: %w", err)
	}
	return nil
}

// NewExecutionContext creates a new empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put sets a value in the ExecutionContext with the specified key and value.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get retrieves the value for the specified key. Returns nil and false if the value does not exist.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	val, ok := ec[key]
	return val, ok
}

// GetString retrieves the value for the specified key as a string.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	val, ok := ec[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves the value for the specified key as an int.
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	val, ok := ec[key]
	if !ok {
		return 0, false
	}
	// Handle numbers unmarshaled from JSON which might be float64
	if i, ok := val.(int); ok {
		return i, true
	}
	if f, ok := val.(float64); ok {
		return int(f), true
	}
	return 0, false
}

// GetFloat64 retrieves the value for the specified key as a float64.
func (ec ExecutionContext) GetFloat64(key string) (float64, bool) {
	val, ok := ec[key]
	if !ok {
		return 0.0, false
	}
	f, ok := val.(float64)
	return f, ok
}

// Copy creates a shallow copy of the ExecutionContext.
func (ec ExecutionContext) Copy() ExecutionContext {
	newEC := make(ExecutionContext, len(ec))
	for k, v := range ec {
		newEC[k] = v
	}
	return newEC
}

// ReasonList holds an ordered list of human-readable reasoning entries.
type ReasonList []string

// Value implements the `driver.Valuer` interface, converting the ReasonList to a JSON string.
func (rl ReasonList) Value() (driver.Value, error) {
	if rl == nil {
		return "[]", nil
	}
	data, err := json.Marshal(rl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to a ReasonList.
func (rl *ReasonList) Scan(value interface{}) error {
	if value == nil {
		*rl = make(ReasonList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for ReasonList: %T", value)
	}

	if len(b) == 0 {
		*rl = make(ReasonList, 0)
		return nil
	}

	if err := json.Unmarshal(b, rl); err != nil {
		return fmt.Errorf("failed to unmarshal ReasonList JSON: %w", err)
	}
	return nil
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
