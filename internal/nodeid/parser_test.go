package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotRef(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expectErr bool
		expected  SlotRef
	}{
		{name: "simple reference", raw: "first.result", expected: SlotRef{Node: "first", Key: "result"}},
		{name: "dashes and digits", raw: "llm-2.out_1", expected: SlotRef{Node: "llm-2", Key: "out_1"}},
		{name: "error - empty", raw: "", expectErr: true},
		{name: "error - missing key", raw: "first", expectErr: true},
		{name: "error - too many segments", raw: "a.b.c", expectErr: true},
		{name: "error - empty segment", raw: "a.", expectErr: true},
		{name: "error - invalid characters", raw: "a.b[0]", expectErr: true},
		{name: "error - bare dash", raw: "-.b", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := ParseSlotRef(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ref)
			assert.Equal(t, tc.raw, ref.String())
		})
	}
}
