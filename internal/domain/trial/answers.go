package trial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerKind tags the variants an answer value may take. Question answers
// have no declared per-question schema, so the value is a tagged union of
// the shapes the capture layer produces.
type AnswerKind int

const (
	AnswerString AnswerKind = iota
	AnswerNumber
	AnswerMultiSelect
)

// AnswerValue is one captured answer: a string, a number, or a multi-select
// list of strings. Anything else (nested objects, mixed arrays) is kept as
// its raw JSON text under the string variant.
type AnswerValue struct {
	Kind   AnswerKind
	String string
	Number float64
	Multi  []string
}

// Stringify renders the value the way QS rows record results: scalars as-is,
// numbers without a trailing exponent, multi-selects as their JSON array text.
func (v AnswerValue) Stringify() string {
	switch v.Kind {
	case AnswerNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case AnswerMultiSelect:
		raw, _ := json.Marshal(v.Multi)
		return string(raw)
	default:
		return v.String
	}
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerNumber:
		return json.Marshal(v.Number)
	case AnswerMultiSelect:
		return json.Marshal(v.Multi)
	default:
		return json.Marshal(v.String)
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty answer value")
	}
	switch trimmed[0] {
	case '"':
		v.Kind = AnswerString
		return json.Unmarshal(trimmed, &v.String)
	case '[':
		var multi []string
		if err := json.Unmarshal(trimmed, &multi); err == nil {
			v.Kind = AnswerMultiSelect
			v.Multi = multi
			return nil
		}
	default:
		var num float64
		if err := json.Unmarshal(trimmed, &num); err == nil {
			v.Kind = AnswerNumber
			v.Number = num
			return nil
		}
	}
	// Unsupported shape: keep the compacted raw text.
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return fmt.Errorf("invalid answer value: %w", err)
	}
	v.Kind = AnswerString
	v.String = buf.String()
	return nil
}

// Answer is a single (question key, value) pair.
type Answer struct {
	Key   string
	Value AnswerValue
}

// Answers is the ordered answer list of one questionnaire response. It
// round-trips as a JSON object whose key order is preserved, which is what
// the QS flattening rules depend on.
type Answers []Answer

func (a Answers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ans := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ans.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(ans.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Answers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode answers: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("answers must be a JSON object")
	}

	var out Answers
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode answer key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("answer key is not a string")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode answer %q: %w", key, err)
		}
		var val AnswerValue
		if err := val.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("answer %q: %w", key, err)
		}
		out = append(out, Answer{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode answers: %w", err)
	}
	*a = out
	return nil
}
