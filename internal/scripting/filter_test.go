package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/powerforge/internal/catalog"
	"github.com/cory-johannsen/powerforge/internal/scripting"
)

var records = []catalog.Record{
	{Kind: catalog.KindPower, Name: "Fastball Special", PowerSets: []string{"Strength"}, Action: "Standard", Cost: "2 Power"},
	{Kind: catalog.KindPower, Name: "Web Shooter", PowerSets: []string{"Agility", "Gadgetry"}, Action: "Minor", Range: "60 ft"},
	{Kind: catalog.KindPower, Name: "Mighty Leap", PowerSets: []string{"Strength", "Agility"}, Action: "Move"},
}

func names(rs []catalog.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func newFilter(t *testing.T, src string) *scripting.Filter {
	t.Helper()
	f, err := scripting.NewFilter(src, 0)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func TestFilter_Expression(t *testing.T) {
	f := newFilter(t, `record.action == "Minor"`)
	got, err := f.Apply(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Web Shooter"}, names(got))
}

func TestFilter_HasSetPreservesOrder(t *testing.T) {
	f := newFilter(t, `has_set("Agility")`)
	got, err := f.Apply(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Web Shooter", "Mighty Leap"}, names(got))
}

func TestFilter_SetsTable(t *testing.T) {
	f := newFilter(t, `#record.sets == 2 and record.sets[1] == "Strength"`)
	got, err := f.Apply(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mighty Leap"}, names(got))
}

func TestFilter_IContains(t *testing.T) {
	f := newFilter(t, `icontains(record.name, "WEB")`)
	got, err := f.Apply(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Web Shooter"}, names(got))
}

func TestFilter_StatementChunk(t *testing.T) {
	f := newFilter(t, `
		local ok = record.cost ~= ""
		return ok
	`)
	got, err := f.Apply(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fastball Special"}, names(got))
}

func TestFilter_NoMatchesIsEmptyNotNil(t *testing.T) {
	f := newFilter(t, `false`)
	got, err := f.Apply(records)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNewFilter_InvalidScript(t *testing.T) {
	for _, src := range []string{"", "   ", "record.name ==", "end end"} {
		_, err := scripting.NewFilter(src, 0)
		assert.ErrorIs(t, err, scripting.ErrInvalidScript, "%q", src)
	}
}

func TestFilter_RuntimeError(t *testing.T) {
	f := newFilter(t, `record.missing.field == 1`)
	_, err := f.Match(records[0])
	assert.ErrorIs(t, err, scripting.ErrScriptFailed)
}

func TestFilter_InstructionLimit(t *testing.T) {
	f, err := scripting.NewFilter(`(function() while true do end end)()`, 50)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Match(records[0])
	assert.ErrorIs(t, err, scripting.ErrScriptFailed)
}

func TestFilter_SandboxHidesOS(t *testing.T) {
	f := newFilter(t, `os.exit(1)`)
	_, err := f.Match(records[0])
	assert.ErrorIs(t, err, scripting.ErrScriptFailed)
}

func TestFilter_MatchAfterClose(t *testing.T) {
	f, err := scripting.NewFilter(`true`, 0)
	require.NoError(t, err)
	f.Close()
	f.Close()
	_, err = f.Match(records[0])
	assert.ErrorIs(t, err, scripting.ErrScriptFailed)
	_, err = f.Apply(records)
	assert.ErrorIs(t, err, scripting.ErrScriptFailed)
}

func TestFilter_Source(t *testing.T) {
	f := newFilter(t, `true`)
	assert.Equal(t, "true", f.Source())
}

func TestProperty_FilterAgreesWithInSet(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		set := rapid.SampledFrom([]string{"Strength", "Agility", "Gadgetry", "Psionics"}).Draw(rt, "set")
		f, err := scripting.NewFilter(`has_set("`+set+`")`, 0)
		require.NoError(rt, err)
		defer f.Close()
		for _, r := range records {
			ok, err := f.Match(r)
			require.NoError(rt, err)
			assert.Equal(rt, r.InSet(set), ok, r.Name)
		}
	})
}
