package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// OptTick tick that may be absent (pool not initialized yet); zero tick is a valid set value
type OptTick struct {
	Value int64
	Valid bool
}

func SomeTick(v int64) OptTick {
	return OptTick{Value: v, Valid: true}
}

func (t OptTick) Get() (int64, bool) {
	return t.Value, t.Valid
}

func (t OptTick) String() string {
	if !t.Valid {
		return "<unset>"
	}
	return strconv.FormatInt(t.Value, 10)
}

func (t OptTick) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.Value, 10)), nil
}

func (t *OptTick) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = OptTick{}
		return nil
	}

	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = SomeTick(v)
	return nil
}
