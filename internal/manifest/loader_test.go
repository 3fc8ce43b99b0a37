package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlManifest = `
title: Statistical Modelling Report
chapters:
  - chapters/01_model.md
  - chapters/02_diagnostics.md
figures:
  - name: model_summary
    routine: texfig
    inputs:
      tex: analysis/model_summary.tex
      density: 300
  - name: anova_comparison
    routine: rscript
    inputs:
      script: analysis/anova.R
workers: 4
timeout: 90s
formats: [pdf, html]
output: out/report
`

func TestLoad_YAML(t *testing.T) {
	m, err := Load([]byte(yamlManifest), ".yaml")
	require.NoError(t, err)

	assert.Equal(t, "Statistical Modelling Report", m.Title)
	assert.Equal(t, []string{"chapters/01_model.md", "chapters/02_diagnostics.md"}, m.Chapters)
	require.Len(t, m.Figures, 2)
	assert.Equal(t, "texfig", m.Figures[0].Routine)
	assert.Equal(t, "analysis/model_summary.tex", m.Figures[0].Inputs["tex"])
	assert.Equal(t, 4, m.Workers)
	assert.Equal(t, 90*time.Second, m.GenerationTimeout())
	assert.Equal(t, []string{"pdf", "html"}, m.Formats)
}

func TestLoad_JSONByContent(t *testing.T) {
	src := `{"title":"R","chapters":["a.md"],"figures":[{"name":"f","routine":"table"}]}`
	m, err := Load([]byte(src), "")
	require.NoError(t, err)
	assert.Equal(t, "R", m.Title)
	assert.Equal(t, "table", m.Figures[0].Routine)
}

func TestLoad_TOML(t *testing.T) {
	src := `
title = "R"
chapters = ["a.md"]

[[figures]]
name = "f"
routine = "rscript"

[figures.inputs]
script = "fit.R"
`
	m, err := Load([]byte(src), ".toml")
	require.NoError(t, err)
	assert.Equal(t, "rscript", m.Figures[0].Routine)
	assert.Equal(t, "fit.R", m.Figures[0].Inputs["script"])
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"no chapters", `title: x`, "chapters or chapters_dir is required"},
		{"both chapter modes", "chapters: [a.md]\nchapters_dir: ch/", "mutually exclusive"},
		{"unnamed figure", "chapters: [a.md]\nfigures:\n  - routine: texfig", "figure with empty name"},
		{"missing routine", "chapters: [a.md]\nfigures:\n  - name: f", "has no routine"},
		{"duplicate figure", "chapters: [a.md]\nfigures:\n  - name: f\n    routine: a\n  - name: f\n    routine: b", "declared twice"},
		{"bad timeout", "chapters: [a.md]\ntimeout: fast", "bad timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.src), ".yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestChapterPaths_FromDir(t *testing.T) {
	dir := t.TempDir()
	chDir := filepath.Join(dir, "chapters")
	require.NoError(t, os.MkdirAll(chDir, 0755))
	for _, name := range []string{"02_b.md", "01_a.md", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(chDir, name), []byte("# T\n"), 0644))
	}
	manifestPath := filepath.Join(dir, "report.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("title: x\nchapters_dir: chapters\n"), 0644))

	m, err := LoadFromPath(manifestPath)
	require.NoError(t, err)
	paths, err := m.ChapterPaths()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(chDir, "01_a.md"), paths[0])
	assert.Equal(t, filepath.Join(chDir, "02_b.md"), paths[1])
}

func TestResolvedPaths_RelativeToManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "report.yaml")
	src := "title: x\nchapters: [ch/a.md]\ndb: state/q.db\nfigures_dir: state/figs\n"
	require.NoError(t, os.WriteFile(manifestPath, []byte(src), 0644))

	m, err := LoadFromPath(manifestPath)
	require.NoError(t, err)
	paths, err := m.ChapterPaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ch", "a.md"), paths[0])
	assert.Equal(t, filepath.Join(dir, "state", "q.db"), m.ResolvedDBPath())
	assert.Equal(t, filepath.Join(dir, "state", "figs"), m.ResolvedFiguresDir())
}
