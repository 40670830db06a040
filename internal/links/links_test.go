package links

import (
	"testing"

	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
)

func TestSet_IsImmutable(t *testing.T) {
	in := []Link{{Source: 1, Target: 2}}
	s := NewSet(in)
	in[0].Source = 99

	all := s.All()
	assert.Equal(t, nodeid.AttrID(1), all[0].Source)

	all[0].Target = 42
	assert.Equal(t, nodeid.AttrID(2), s.All()[0].Target)
}

func TestSet_Without(t *testing.T) {
	s := NewSet([]Link{
		{Source: 1, Target: 2},
		{Source: 3, Target: 4},
		{Source: 5, Target: 1},
		{Source: 6, Target: 7},
	})

	got := s.Without([]nodeid.AttrID{1, 4})
	assert.Equal(t, []Link{{Source: 6, Target: 7}}, got.All())
	assert.Equal(t, 4, s.Len(), "original set is unchanged")
}

func TestLink_String(t *testing.T) {
	assert.Equal(t, "3->8", Link{Source: 3, Target: 8}.String())
}
