package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func nameTerm(v string) *Expr { return Term(FieldName, v, ModTerm) }

func TestDoubleNegationEliminated(t *testing.T) {
	e := Not(Not(nameTerm("a")))
	assert.True(t, Equal(Plan(e), nameTerm("a")))
}

func TestDeMorganAnd(t *testing.T) {
	e := Not(And(nameTerm("a"), nameTerm("b")))
	want := Or(Not(nameTerm("a")), Not(nameTerm("b")))
	assert.True(t, Equal(Plan(e), want))
}

func TestDeMorganOr(t *testing.T) {
	e := Not(Or(nameTerm("a"), nameTerm("b")))
	want := And(Not(nameTerm("a")), Not(nameTerm("b")))
	assert.True(t, Equal(Plan(e), want))
}

func TestAssociativeFlattenAnd(t *testing.T) {
	e := And(nameTerm("a"), And(nameTerm("b"), nameTerm("c")), nameTerm("d"))
	want := And(nameTerm("a"), nameTerm("b"), nameTerm("c"), nameTerm("d"))
	assert.True(t, Equal(Plan(e), want))
}

func TestSingleChildAndCollapses(t *testing.T) {
	e := And(nameTerm("a"))
	assert.True(t, Equal(Plan(e), nameTerm("a")))
}

func TestPlanIsIdempotent(t *testing.T) {
	cases := []*Expr{
		Not(Not(nameTerm("a"))),
		Not(And(nameTerm("a"), Or(nameTerm("b"), nameTerm("c")))),
		And(nameTerm("a"), And(nameTerm("b"), Or(nameTerm("c")))),
		RangeExpr(FieldSize, OpGe, 100, 0),
		Not(RangeExpr(FieldSize, OpGe, 100, 0)),
	}
	for _, c := range cases {
		once := Plan(c)
		twice := Plan(once)
		assert.True(t, Equal(once, twice), "Plan not idempotent for %+v", c)
	}
}

func TestFlattenResultHasNoNestedAndOr(t *testing.T) {
	e := Not(And(Or(nameTerm("a"), nameTerm("b")), nameTerm("c")))
	planned := Plan(e)
	assertNoNestedSameKind(t, planned)
}

func assertNoNestedSameKind(t *testing.T, e *Expr) {
	t.Helper()
	if e == nil {
		return
	}
	switch e.Kind {
	case KindAnd, KindOr:
		assert.NotEqual(t, 1, len(e.Children), "single-child And/Or should have collapsed")
		for _, c := range e.Children {
			assert.NotEqual(t, e.Kind, c.Kind, "nested same-kind And/Or should have flattened")
			assertNoNestedSameKind(t, c)
		}
	case KindNot:
		assertNoNestedSameKind(t, e.Child)
	}
}

func TestFieldsDetectsMetadataOnlyFields(t *testing.T) {
	e := And(nameTerm("a"), RangeExpr(FieldSize, OpGe, 10, 0))
	fields := Fields(e)
	for f := range fields {
		assert.True(t, MetadataFields[f], "field %s should be metadata-only", f)
	}
}

func TestFieldsDetectsContentField(t *testing.T) {
	e := Term(FieldContent, "needle", ModTerm)
	fields := Fields(e)
	assert.True(t, fields[FieldContent])
	assert.False(t, MetadataFields[FieldContent])
}
