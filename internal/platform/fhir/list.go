package fhir

import "encoding/json"

// List is a repeating element. It always serializes as a JSON array (an
// empty list renders as [] rather than null) and drops null entries, as well
// as a null list, when decoding.
type List[T any] []T

func (l List[T]) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(l))
}

func (l *List[T]) UnmarshalJSON(data []byte) error {
	var raw []*T
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(List[T], 0, len(raw))
	for _, item := range raw {
		if item != nil {
			out = append(out, *item)
		}
	}
	*l = out
	return nil
}
