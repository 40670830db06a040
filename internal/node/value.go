package node

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// IsAbsent reports whether v carries no usable value.
func IsAbsent(v cty.Value) bool {
	return v.IsNull() || !v.IsKnown()
}

// Coerce converts v to ty. Values are passed through unchanged when ty is
// cty.DynamicPseudoType.
func Coerce(v cty.Value, ty cty.Type) (cty.Value, error) {
	if ty == cty.DynamicPseudoType {
		return v, nil
	}
	out, err := convert.Convert(v, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot use %s as %s: %w", v.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return out, nil
}

// sameValue compares two values, treating all absent values as equal.
func sameValue(a, b cty.Value) bool {
	aAbsent, bAbsent := IsAbsent(a), IsAbsent(b)
	if aAbsent || bAbsent {
		return aAbsent == bAbsent
	}
	return a.RawEquals(b)
}
