package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skg/skgerr"
)

func newTestRegistry(t *testing.T, kind Kind) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meta", "attr_conf")
	r, st := NewRegistry(kind, path)
	require.Nil(t, st)
	return r
}

func TestAddLabelAssignsIncrementingTags(t *testing.T) {
	r := newTestRegistry(t, VertexKind)
	tag1, st := r.AddLabel("person")
	require.Nil(t, st)
	tag2, st := r.AddLabel("company")
	require.Nil(t, st)
	assert.NotEqual(t, uint8(0), tag1)
	assert.Greater(t, tag2, tag1)

	// re-adding the same label is a no-op returning the same tag
	tag1Again, st := r.AddLabel("person")
	require.Nil(t, st)
	assert.Equal(t, tag1, tag1Again)
}

func TestAddColumnRejectsDuplicateName(t *testing.T) {
	r := newTestRegistry(t, VertexKind)
	r.AddLabel("person")
	_, st := r.AddColumn("person", Column{Name: "age", Type: INT32})
	require.Nil(t, st)
	_, st2 := r.AddColumn("person", Column{Name: "age", Type: INT64})
	require.NotNil(t, st2)
	assert.True(t, st2.Is(skgerr.AlreadyExists))
}

func TestAddColumnRejectsDuplicateNestedInGroup(t *testing.T) {
	r := newTestRegistry(t, VertexKind)
	r.AddLabel("person")
	_, st := r.AddColumn("person", Column{
		Name: "addr",
		Type: GROUP,
		Inner: []Column{
			{Name: "city", Type: VARCHAR},
		},
	})
	require.Nil(t, st)
	_, st2 := r.AddColumn("person", Column{Name: "city", Type: VARCHAR})
	require.NotNil(t, st2)
	assert.True(t, st2.Is(skgerr.AlreadyExists))
}

func TestEdgeLabelRejectsVarchar(t *testing.T) {
	r := newTestRegistry(t, EdgeKind)
	r.AddLabel("follows")
	_, st := r.AddColumn("follows", Column{Name: "note", Type: VARCHAR})
	require.NotNil(t, st)
	assert.True(t, st.Is(skgerr.NotSupported))
}

func TestAddColumnEnforcesColumnCountBudget(t *testing.T) {
	r := newTestRegistry(t, VertexKind)
	r.AddLabel("wide")
	for i := 0; i < MaxColumns; i++ {
		_, st := r.AddColumn("wide", Column{Name: colName(i), Type: INT32})
		require.Nil(t, st)
	}
	_, st := r.AddColumn("wide", Column{Name: "overflow", Type: INT32})
	require.NotNil(t, st)
	assert.True(t, st.Is(skgerr.NotSupported))
}

func colName(i int) string {
	return "c" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestAddColumnEnforcesRowByteBudget(t *testing.T) {
	r := newTestRegistry(t, VertexKind)
	r.AddLabel("fat")
	added := 0
	// 100-byte columns: the row-byte budget is reached long before MaxColumns
	for added*100 <= MaxRowBytes {
		_, st := r.AddColumn("fat", Column{Name: colName(added), Type: FixedBytes, FixedSize: 100})
		if st != nil {
			assert.True(t, st.Is(skgerr.NotSupported))
			assert.Equal(t, MaxRowBytes/100, added)
			return
		}
		added++
	}
	t.Fatal("expected row-byte budget to be hit")
}

func TestDeleteColumnThenNotFound(t *testing.T) {
	r := newTestRegistry(t, VertexKind)
	r.AddLabel("person")
	r.AddColumn("person", Column{Name: "age", Type: INT32})
	require.Nil(t, r.DeleteColumn("person", "age"))
	st := r.DeleteColumn("person", "age")
	require.NotNil(t, st)
	assert.True(t, st.Is(skgerr.NotFound))
}

func TestMatchQueryColumnsProjectsRequestedNames(t *testing.T) {
	r := newTestRegistry(t, VertexKind)
	r.AddLabel("person")
	r.AddColumn("person", Column{Name: "age", Type: INT32})
	r.AddColumn("person", Column{Name: "height", Type: FLOAT32})

	projections := r.MatchQueryColumns([]string{"age", "nonexistent"})
	require.Len(t, projections, 1)
	require.Len(t, projections[0].Columns, 1)
	assert.Equal(t, "age", projections[0].Columns[0].Name)
}

func TestRegistryPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta", "attr_conf")
	r, st := NewRegistry(VertexKind, path)
	require.Nil(t, st)
	tag, st := r.AddLabel("person")
	require.Nil(t, st)
	_, st = r.AddColumn("person", Column{Name: "age", Type: INT32})
	require.Nil(t, st)

	r2, st := NewRegistry(VertexKind, path)
	require.Nil(t, st)
	tag2, st := r2.TagByLabel("person")
	require.Nil(t, st)
	assert.Equal(t, tag, tag2)

	ls, st := r2.LabelByTag(tag2)
	require.Nil(t, st)
	require.Len(t, ls.Columns, 1)
	assert.Equal(t, "age", ls.Columns[0].Name)
}

func TestAddEdgeLabelAllowsSameLabelAcrossDistinctVertexPairs(t *testing.T) {
	r := newTestRegistry(t, EdgeKind)
	followsUser, st := r.AddEdgeLabel("follows", "user", 1, "user", 1, false)
	require.Nil(t, st)
	followsPage, st := r.AddEdgeLabel("follows", "user", 1, "page", 2, true)
	require.Nil(t, st)
	assert.NotEqual(t, followsUser, followsPage, "same elabel under a different (src,dst) pair gets its own tag")

	// re-registering the same tuple is a no-op returning the same tag
	again, st := r.AddEdgeLabel("follows", "user", 1, "user", 1, false)
	require.Nil(t, st)
	assert.Equal(t, followsUser, again)

	tag, st := r.TagByEdgeLabel("follows", "user", "page")
	require.Nil(t, st)
	assert.Equal(t, followsPage, tag)

	ls, st := r.LabelByTag(followsPage)
	require.Nil(t, st)
	assert.Equal(t, "user", ls.SrcLabel)
	assert.Equal(t, "page", ls.DstLabel)
	assert.Equal(t, uint8(1), ls.SrcTag)
	assert.Equal(t, uint8(2), ls.DstTag)
	assert.Equal(t, FlagWeighted, ls.Flags)
}

func TestParseTimeLayoutRejectsOtherFormats(t *testing.T) {
	_, err := ParseTimeLayout("2024-01-02 15:04:05")
	require.NoError(t, err)
	_, err = ParseTimeLayout("01/02/2024")
	require.Error(t, err)
}
