package transport

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/reliefhub/stock-service/internal/model"
	"google.golang.org/protobuf/types/known/structpb"
)

func Str(s *structpb.Struct, key string) string {
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

func Has(s *structpb.Struct, key string) bool {
	v, ok := s.GetFields()[key]
	if !ok {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

// Bool returns the value and whether it was set.
func Bool(s *structpb.Struct, key string) (bool, bool) {
	v, ok := s.GetFields()[key]
	if !ok {
		return false, false
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, false
	}
	return b.BoolValue, true
}

// Int reads a whole number. Missing keys read as zero; anything that is not a
// finite integral number fails with ErrInvalidQuantity.
func Int(s *structpb.Struct, key string) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, fmt.Errorf("%w: %s is not a number", model.ErrInvalidQuantity, key)
	}
	f := n.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be a whole number", model.ErrInvalidQuantity, key)
	}
	return int(f), nil
}

// Float reads a number; kind is the sentinel returned for non-numeric input.
func Float(s *structpb.Struct, key string, kind error) (float64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", kind, key)
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || math.IsNaN(n.NumberValue) || math.IsInf(n.NumberValue, 0) {
		return 0, fmt.Errorf("%w: %s is not a number", kind, key)
	}
	return n.NumberValue, nil
}

func Struct(s *structpb.Struct, key string) *structpb.Struct {
	return s.GetFields()[key].GetStructValue()
}

func List(s *structpb.Struct, key string) []*structpb.Value {
	return s.GetFields()[key].GetListValue().GetValues()
}

func Strings(s *structpb.Struct, key string) []string {
	var out []string
	for _, v := range List(s, key) {
		if str := strings.TrimSpace(v.GetStringValue()); str != "" {
			out = append(out, str)
		}
	}
	return out
}

// Time parses an RFC 3339 timestamp; a missing or empty value yields nil.
func Time(s *structpb.Struct, key string) (*time.Time, error) {
	raw := Str(s, key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &t, nil
}
