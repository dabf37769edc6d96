package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/data"
)

func writeTemplate(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestRenderer(t *testing.T, templates, site string) *Renderer {
	t.Helper()
	r, err := NewRenderer(templates, site, "partials", nil)
	require.NoError(t, err)
	return r
}

func TestRenderAll_SubstitutesContextIntoMirroredOutput(t *testing.T) {
	templates := t.TempDir()
	site := filepath.Join(t.TempDir(), "site")
	writeTemplate(t, templates, filepath.Join("x", "a.html.j2"), "<h1>{{ title }}</h1>")

	newTestRenderer(t, templates, site).RenderAll(context.Background(), data.Context{"title": "Hello"})

	got, err := os.ReadFile(filepath.Join(site, "x", "a.html"))
	require.NoError(t, err)
	require.Equal(t, "<h1>Hello</h1>", string(got))
}

func TestRenderAll_PartialsProduceNoOutput(t *testing.T) {
	templates := t.TempDir()
	site := filepath.Join(t.TempDir(), "site")
	writeTemplate(t, templates, filepath.Join("partials", "_nav.j2"), "<nav></nav>")
	writeTemplate(t, templates, "index.j2", "<p>page</p>")

	newTestRenderer(t, templates, site).RenderAll(context.Background(), data.Context{})

	_, err := os.Stat(filepath.Join(site, "partials", "_nav.html"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(site, "index.html"))
	require.NoError(t, err)
}

func TestRenderAll_IncludeResolvesAgainstTemplateRoot(t *testing.T) {
	templates := t.TempDir()
	site := filepath.Join(t.TempDir(), "site")
	writeTemplate(t, templates, filepath.Join("partials", "_nav.j2"), "<nav>{{ site_name }}</nav>")
	writeTemplate(t, templates, filepath.Join("pages", "home.html.j2"),
		`{% include "partials/_nav.j2" %}<main></main>`)

	newTestRenderer(t, templates, site).RenderAll(context.Background(), data.Context{"site_name": "demo"})

	got, err := os.ReadFile(filepath.Join(site, "pages", "home.html"))
	require.NoError(t, err)
	require.Equal(t, "<nav>demo</nav><main></main>", string(got))
}

func TestRenderAll_UndefinedVariable_DoesNotAbortOthers(t *testing.T) {
	templates := t.TempDir()
	site := filepath.Join(t.TempDir(), "site")
	writeTemplate(t, templates, "missing.j2", "<p>{{ no_such_key }}</p>")
	writeTemplate(t, templates, "other.j2", "<p>{{ present }}</p>")

	newTestRenderer(t, templates, site).RenderAll(context.Background(), data.Context{"present": "yes"})

	got, err := os.ReadFile(filepath.Join(site, "other.html"))
	require.NoError(t, err)
	require.Equal(t, "<p>yes</p>", string(got))
	_, err = os.Stat(filepath.Join(site, "missing.html"))
	require.NoError(t, err)
}

func TestRenderAll_BadSyntax_SkipsFileAndContinues(t *testing.T) {
	templates := t.TempDir()
	site := filepath.Join(t.TempDir(), "site")
	writeTemplate(t, templates, "broken.j2", "{% if %}")
	writeTemplate(t, templates, "fine.j2", "ok")

	newTestRenderer(t, templates, site).RenderAll(context.Background(), data.Context{})

	got, err := os.ReadFile(filepath.Join(site, "fine.html"))
	require.NoError(t, err)
	require.Equal(t, "ok", string(got))
	_, err = os.Stat(filepath.Join(site, "broken.html"))
	require.True(t, os.IsNotExist(err))
}

func TestRenderAll_MarkdownFilter_RendersHTML(t *testing.T) {
	templates := t.TempDir()
	site := filepath.Join(t.TempDir(), "site")
	writeTemplate(t, templates, "post.j2", "{{ body|markdown }}")

	newTestRenderer(t, templates, site).RenderAll(context.Background(), data.Context{"body": "# Title"})

	got, err := os.ReadFile(filepath.Join(site, "post.html"))
	require.NoError(t, err)
	require.Contains(t, string(got), "<h1>Title</h1>")
}

func TestOutputName_StripsTemplateSuffixes(t *testing.T) {
	cases := map[string]string{
		"a.html.j2":              "a.html",
		"a.j2":                   "a.html",
		"a.html.jinja":           "a.html",
		"a.jinja":                "a.html",
		filepath.Join("x", "b.html.j2"): filepath.Join("x", "b.html"),
	}
	for in, want := range cases {
		require.Equal(t, want, OutputName(in), "input %q", in)
	}
}

func TestIsTemplate_RecognizesOnlyTemplateSuffixes(t *testing.T) {
	require.True(t, IsTemplate("a.j2"))
	require.True(t, IsTemplate("a.jinja"))
	require.True(t, IsTemplate("a.html.j2"))
	require.False(t, IsTemplate("a.html"))
	require.False(t, IsTemplate("a.txt"))
}
