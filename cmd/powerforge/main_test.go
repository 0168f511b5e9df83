package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/powerforge/internal/catalog"
	"github.com/cory-johannsen/powerforge/internal/hero"
)

const powersXML = `<?xml version="1.0" encoding="UTF-8"?>
<Powers>
  <Power>
    <Name>Fastball Special</Name>
    <PowerSet>Strength</PowerSet>
    <Description>Hurl an ally at a foe.</Description>
    <Action>Standard</Action>
    <Cost>5 Focus</Cost>
  </Power>
  <Power>
    <Name>Web Shooter</Name>
    <PowerSet>Agility</PowerSet>
    <Description>Fire a strand of webbing.</Description>
    <Action>Minor</Action>
  </Power>
  <Power>
    <Name>Mighty Leap</Name>
    <PowerSet>Strength, Agility</PowerSet>
    <Action>Move</Action>
  </Power>
</Powers>
`

const traitsXML = `<?xml version="1.0" encoding="UTF-8"?>
<traits>
  <trait>
    <name>Big Hands</name>
    <description>Your hands are unusually large.</description>
  </trait>
</traits>
`

// cli runs powerforge against catalogs in a temporary directory.
type cli struct {
	t      *testing.T
	dir    string
	powers string
	traits string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	c := &cli{t: t, dir: dir, powers: filepath.Join(dir, "powers.xml"), traits: filepath.Join(dir, "traits.xml")}
	require.NoError(t, os.WriteFile(c.powers, []byte(powersXML), 0644))
	require.NoError(t, os.WriteFile(c.traits, []byte(traitsXML), 0644))
	t.Setenv("POWERFORGE_LIBRARY_SQLITE_PATH", filepath.Join(dir, "heroes.db"))
	return c
}

func (c *cli) path(name string) string {
	return filepath.Join(c.dir, name)
}

func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--powers", c.powers, "--traits", c.traits, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, errOut, err := c.run(args...)
	require.NoError(c.t, err, "stderr: %s", errOut)
	return out
}

func TestSets(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, "Agility\t2\nStrength\t2\n", c.mustRun("sets"))
}

func TestPowers_Filters(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t,
		"Fastball Special\t[Strength]\nWeb Shooter\t[Agility]\nMighty Leap\t[Strength, Agility]\n",
		c.mustRun("powers"))
	assert.Equal(t, "Fastball Special\t[Strength]\nMighty Leap\t[Strength, Agility]\n", c.mustRun("powers", "--set", "Strength"))
	assert.Equal(t, "Web Shooter\t[Agility]\n", c.mustRun("powers", "--search", "WEB"))
	assert.Equal(t, "Mighty Leap\t[Strength, Agility]\n", c.mustRun("powers", "--set", "Agility", "--where", `record.action == "Move"`))
	assert.Empty(t, c.mustRun("powers", "--set", "Psionics"))
}

func TestPowers_InvalidWhere(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run("powers", "--where", "record.name ==")
	assert.Error(t, err)
}

func TestTraits(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, "Big Hands\n", c.mustRun("traits"))
	assert.Empty(t, c.mustRun("traits", "--search", "tail"))
}

func TestShow(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("show", "--plain", "Fastball Special")
	assert.Contains(t, out, "### Fastball Special")
	assert.Contains(t, out, "- **Cost:** 5 Focus")

	out = c.mustRun("show", "--plain", "Big Hands")
	assert.Contains(t, out, "- **Description:** Your hands are unusually large.")

	_, _, err := c.run("show", "Optic Blast")
	assert.ErrorIs(t, err, catalog.ErrRecordNotFound)
}

func TestMissingCatalog(t *testing.T) {
	c := newCLI(t)
	c.powers = c.path("absent.xml")
	_, _, err := c.run("sets")
	assert.ErrorIs(t, err, catalog.ErrCatalogNotFound)
}

func TestHeroWorkflow(t *testing.T) {
	c := newCLI(t)
	file := c.path("colossus.json")

	assert.Equal(t, file+"\n", c.mustRun("hero", "new", "Colossus", "-o", file))
	assert.Equal(t, "Fastball Special: added\nMighty Leap: added\n",
		c.mustRun("hero", "add-power", "--hero", file, "Fastball Special", "Mighty Leap"))
	assert.Equal(t, "Fastball Special: already selected\n",
		c.mustRun("hero", "add-power", "--hero", file, "Fastball Special"))
	assert.Equal(t, "Big Hands: added\n", c.mustRun("hero", "add-trait", "--hero", file, "Big Hands"))
	assert.Equal(t, "Mighty Leap: removed\n", c.mustRun("hero", "remove-power", "--hero", file, "Mighty Leap"))
	assert.Equal(t, "Big Hands: removed\nBig Hands: not selected\n",
		c.mustRun("hero", "remove-trait", "--hero", file, "Big Hands", "Big Hands"))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hero_name": "Colossus"`)
	assert.Contains(t, string(data), `"Fastball Special"`)
	assert.NotContains(t, string(data), `"Mighty Leap"`)

	out := c.mustRun("hero", "show", "--plain", "--hero", file)
	assert.True(t, strings.HasPrefix(out, "# Colossus's Powers and Traits\n"))
	assert.Contains(t, out, "### Fastball Special")

	c.mustRun("hero", "rename", "--hero", file, "Piotr")
	data, err = os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hero_name": "Piotr"`)
}

func TestHeroAddUnknownLeavesFile(t *testing.T) {
	c := newCLI(t)
	file := c.path("h.yaml")
	c.mustRun("hero", "new", "Colossus", "-o", file)
	before, err := os.ReadFile(file)
	require.NoError(t, err)

	_, _, err = c.run("hero", "add-power", "--hero", file, "Web Shooter", "Optic Blast")
	assert.ErrorIs(t, err, catalog.ErrRecordNotFound)
	after, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestHeroRequiresHeroFlag(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run("hero", "show")
	assert.Error(t, err)
}

func TestHeroNewDefaultFileName(t *testing.T) {
	c := newCLI(t)
	t.Chdir(c.dir)
	assert.Equal(t, "Colossus_powers_and_traits.json\n", c.mustRun("hero", "new", "Colossus"))
	_, err := os.Stat(c.path("Colossus_powers_and_traits.json"))
	assert.NoError(t, err)
}

func TestHeroLoadReportsDropped(t *testing.T) {
	c := newCLI(t)
	file := c.path("stale.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
    "hero_name": "Stale",
    "selected_powers": ["Optic Blast", "Web Shooter"],
    "selected_traits": []
}`), 0644))

	out, errOut, err := c.run("hero", "show", "--plain", "--hero", file)
	require.NoError(t, err)
	assert.Contains(t, errOut, `dropped power "Optic Blast"`)
	assert.Contains(t, out, "### Web Shooter")

	t.Setenv("POWERFORGE_HERO_STALE_POLICY", "strict")
	_, _, err = c.run("hero", "show", "--plain", "--hero", file)
	assert.ErrorIs(t, err, hero.ErrStaleReference)
}

func TestHeroExport(t *testing.T) {
	c := newCLI(t)
	file := c.path("colossus.toml")
	c.mustRun("hero", "new", "Colossus", "-o", file)
	c.mustRun("hero", "add-power", "--hero", file, "Fastball Special")

	pdfPath := c.path("out.pdf")
	assert.Equal(t, pdfPath+"\n", c.mustRun("hero", "export", "--hero", file, "-o", pdfPath))
	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	mdPath := c.path("out.md")
	c.mustRun("hero", "export", "--hero", file, "--format", "markdown", "-o", mdPath)
	data, err = os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### Fastball Special")

	_, _, err = c.run("hero", "export", "--hero", file, "--format", "docx")
	assert.Error(t, err)
}

func TestHeroStoreRoundTrip(t *testing.T) {
	c := newCLI(t)
	file := c.path("colossus.json")
	c.mustRun("hero", "new", "Colossus", "-o", file)
	c.mustRun("hero", "add-trait", "--hero", file, "Big Hands")

	id := strings.TrimSpace(c.mustRun("hero", "store", "put", "--hero", file))
	require.NotEmpty(t, id)

	list := c.mustRun("hero", "store", "list")
	assert.Equal(t, id+"\tColossus\t0 powers, 1 traits\n", list)

	copyPath := c.path("copy.yaml")
	c.mustRun("hero", "store", "get", id, "-o", copyPath)
	data, err := os.ReadFile(copyPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hero_name: Colossus")
	assert.Contains(t, string(data), id)

	c.mustRun("hero", "store", "delete", id)
	assert.Empty(t, c.mustRun("hero", "store", "list"))
	_, _, err = c.run("hero", "store", "delete", id)
	assert.ErrorIs(t, err, hero.ErrHeroNotFound)
}
