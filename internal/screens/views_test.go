package screens

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgr/internal/risk"
)

func newViews(t *testing.T) *Views {
	t.Helper()
	v, err := NewViews()
	require.NoError(t, err)
	return v
}

func TestRender_DeniedWithoutChrome(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, newViews(t).Render(rec, http.StatusForbidden, PageDenied, Page{Title: "Acesso negado"}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "ACESSO NEGADO")
	assert.NotContains(t, rec.Body.String(), "navbar-container")
}

func TestRender_ChromeShowsAdminMenuOnlyWhenPresent(t *testing.T) {
	v := newViews(t)
	chrome := Chrome{
		Authenticated: true,
		User:          "Ana",
		Navigation: Navigation{
			Items: []NavItem{{Label: "Acompanhamento", Path: "/sgr/acompanhamentos"}},
		},
	}

	rec := httptest.NewRecorder()
	require.NoError(t, v.Render(rec, http.StatusOK, PageScreen, Page{Title: "Início", Chrome: chrome}))
	body := rec.Body.String()
	assert.Contains(t, body, "navbar-container")
	assert.Contains(t, body, `href="/sgr/acompanhamentos"`)
	assert.NotContains(t, body, "admin-menu")

	chrome.AdminItems = []NavItem{{Label: "Controle de OMs", Path: "/sgr/om"}}
	rec = httptest.NewRecorder()
	require.NoError(t, v.Render(rec, http.StatusOK, PageScreen, Page{Title: "Início", Chrome: chrome}))
	assert.Contains(t, rec.Body.String(), "admin-menu")
	assert.Contains(t, rec.Body.String(), `href="/sgr/om"`)
}

func TestRender_LoginEscapesInput(t *testing.T) {
	rec := httptest.NewRecorder()

	err := newViews(t).Render(rec, http.StatusUnauthorized, PageLogin, Page{
		Data: LoginForm{Username: `"><script>`, From: "/sgr/om", Error: "Usuário ou senha inválidos"},
	})

	require.NoError(t, err)
	body := rec.Body.String()
	assert.NotContains(t, body, `"><script>`)
	assert.Contains(t, body, `value="/sgr/om"`)
	assert.Contains(t, body, "Usuário ou senha inválidos")
}

func TestRender_RiskFormShowsEngineScore(t *testing.T) {
	form := NewRiskForm(risk.Record{Probabilidade: "MÉDIO", Impacto: "MÉDIO", Criticidade: 1}, "")
	require.True(t, form.Scored)

	rec := httptest.NewRecorder()
	require.NoError(t, newViews(t).Render(rec, http.StatusOK, PageRiskForm, Page{Data: form}))

	body := rec.Body.String()
	assert.Contains(t, body, `id="criticidade" placeholder="Criticidade" value="9"`)
	assert.Contains(t, body, `value="ALTO" readonly`)
}

func TestRender_RiskFormIncompleteLeavesScoreBlank(t *testing.T) {
	form := NewRiskForm(risk.Record{Probabilidade: "ALTO"}, "")
	require.False(t, form.Scored)

	rec := httptest.NewRecorder()
	require.NoError(t, newViews(t).Render(rec, http.StatusOK, PageRiskForm, Page{Data: form}))

	assert.Contains(t, rec.Body.String(), `id="criticidade" placeholder="Criticidade" value=""`)
}

func TestRender_RiskFormActions(t *testing.T) {
	create := NewRiskForm(risk.Record{}, "")
	assert.False(t, create.Editing)
	assert.Equal(t, "/sgr/identificacaoriscos/inserir", create.Action)

	edit := NewRiskForm(risk.Record{ID: "IR 1"}, "IR 1")
	assert.True(t, edit.Editing)
	assert.Equal(t, "/sgr/identificacaoriscos/IR%201", edit.Action)

	rec := httptest.NewRecorder()
	require.NoError(t, newViews(t).Render(rec, http.StatusOK, PageRiskForm, Page{Data: edit}))
	assert.Contains(t, rec.Body.String(), `action="/sgr/identificacaoriscos/IR%201"`)
	assert.Contains(t, rec.Body.String(), "Editar")
}

func TestRender_UnknownPage(t *testing.T) {
	err := newViews(t).Render(httptest.NewRecorder(), http.StatusOK, "nope", Page{})
	require.Error(t, err)
}

func TestRender_AllPagesParse(t *testing.T) {
	v := newViews(t)
	for _, name := range []string{PageScreen, PageNotFound, PageConfirmed} {
		rec := httptest.NewRecorder()
		require.NoError(t, v.Render(rec, http.StatusOK, name, Page{Title: name}), name)
	}
}

func TestRender_RiskFormDropsOutdatedScores(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, newViews(t).Render(rec, http.StatusOK, PageRiskForm, Page{Data: NewRiskForm(risk.Record{}, "")}))

	body := rec.Body.String()
	assert.Contains(t, body, "var seq = ++latest;", "each score request is numbered")
	assert.Contains(t, body, "if (seq !== latest) { return; }", "only the newest response fills the fields")
}
