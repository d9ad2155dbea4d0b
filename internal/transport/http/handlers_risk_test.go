package httptransport

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/mock/gomock"

	"sgr/internal/risk"
	dErrors "sgr/pkg/domain-errors"
	"sgr/pkg/testutil"
)

func riskForm() url.Values {
	return url.Values{
		"id":                  {"IR-7"},
		"projeto":             {"Radar"},
		"contrato":            {"CT-2025-01"},
		"tipoRisco":           {"OPERACIONAL"},
		"risco":               {"PROJETO"},
		"conjunto":            {"Antena"},
		"dataRisco":           {"2025-03-01"},
		"ano":                 {"2025"},
		"dataLimite":          {"2025-06-30"},
		"categoria":           {"TÉCNICO"},
		"probabilidade":       {"ALTO"},
		"impacto":             {"MUITO ALTO"},
		"criticidade":         {"1"},
		"severidade":          {"BAIXO"},
		"impactoFinanceiro":   {"R$ 1.000,00"},
		"responsavelRisco":    {"Cap Lima"},
		"responsavelConjunto": {"Ten Rocha"},
		"status":              {"Fechado sem impacto"},
	}
}

func (s *RouterSuite) TestScoreRequiresSession() {
	rec := s.postJSON("/sgr/api/score", "", `{"probabilidade":"ALTO","impacto":"ALTO"}`)

	testutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}

func (s *RouterSuite) TestScoreComputesFromLabels() {
	sid := s.signedIn("PERFIL_USUARIO")
	tests := []struct {
		body string
		want string
	}{
		{`{"probabilidade":"MUITO ALTO","impacto":"MUITO ALTO"}`, `{"scored":true,"criticidade":25,"severidade":"EXTREMO"}`},
		{`{"probabilidade":"BAIXO","impacto":"MÉDIO"}`, `{"scored":true,"criticidade":6,"severidade":"MÉDIO"}`},
		{`{"probabilidade":"ALTO","impacto":""}`, `{"scored":false,"criticidade":0,"severidade":""}`},
		{`{"probabilidade":"ALTÍSSIMO","impacto":"ALTO"}`, `{"scored":false,"criticidade":0,"severidade":""}`},
	}
	for _, tt := range tests {
		rec := s.postJSON("/sgr/api/score", sid, tt.body)
		s.Equal(http.StatusOK, rec.Code, tt.body)
		s.JSONEq(tt.want, rec.Body.String(), tt.body)
	}

	rec := s.postJSON("/sgr/api/score", sid, `{"probabilidade":"ALTO","impacto":"ALTO"}`)
	got := testutil.UnmarshalResponse[scoreResponse](s.T(), rec)
	s.True(got.Scored)
	s.Equal(risk.SeverityExtremo, got.Severity)
}

func (s *RouterSuite) TestScoreMetricCountsOnlyComputedScores() {
	sid := s.signedIn("PERFIL_USUARIO")

	s.postJSON("/sgr/api/score", sid, `{"probabilidade":"ALTO","impacto":""}`)
	s.postJSON("/sgr/api/score", sid, `{"probabilidade":"BAIXO","impacto":"MÉDIO"}`)

	body := s.get("/metrics", "").Body.String()
	s.Contains(body, `sgr_risk_scores_total{severity="MÉDIO"} 1`)
	s.NotContains(body, `sgr_risk_scores_total{severity=""}`)
	s.NotContains(body, `severity="incomplete"`)
}

func (s *RouterSuite) TestScoreRejectsBadJSON() {
	sid := s.signedIn("PERFIL_USUARIO")

	rec := s.postJSON("/sgr/api/score", sid, `{nope`)

	testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}

func (s *RouterSuite) TestRiskFormRequiresSession() {
	rec := s.get("/sgr/identificacaoriscos/inserir", "")

	s.Equal(http.StatusFound, rec.Code)
	s.Equal("/sgr/login?from=%2Fsgr%2Fidentificacaoriscos%2Finserir", rec.Header().Get("Location"))
}

func (s *RouterSuite) TestRiskFormCreate() {
	sid := s.signedIn("PERFIL_USUARIO")

	rec := s.get("/sgr/identificacaoriscos/inserir", sid)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `action="/sgr/identificacaoriscos/inserir"`)
	s.Contains(rec.Body.String(), `id="criticidade"`)
}

func (s *RouterSuite) TestRiskFormEditLoadsRecordWithBearer() {
	sid := s.signedIn("PERFIL_USUARIO")
	s.backend.EXPECT().Risk(gomock.Any(), s.bearerOf(sid), "IR-7").
		Return(risk.Record{ID: "IR-7", Projeto: "Radar", Probabilidade: "MÉDIO", Impacto: "ALTO"}, nil)

	rec := s.get("/sgr/identificacaoriscos/IR-7", sid)

	s.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.Contains(body, `value="Radar"`)
	s.Contains(body, `value="12" readonly`)
	s.Contains(body, `action="/sgr/identificacaoriscos/IR-7"`)
}

func (s *RouterSuite) TestRiskFormEditMissingRecord() {
	sid := s.signedIn("PERFIL_USUARIO")
	s.backend.EXPECT().Risk(gomock.Any(), gomock.Any(), "IR-404").
		Return(risk.Record{}, dErrors.New(dErrors.CodeNotFound, "Risco não encontrado"))

	rec := s.get("/sgr/identificacaoriscos/IR-404", sid)

	s.Equal(http.StatusFound, rec.Code)
	s.Equal("/sgr/nao-encontrado", rec.Header().Get("Location"))
}

func (s *RouterSuite) TestRiskSubmitCreatesWithEngineScore() {
	sid := s.signedIn("PERFIL_USUARIO")
	s.backend.EXPECT().SubmitRisk(gomock.Any(), s.bearerOf(sid), "", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, rec risk.Record) (risk.Record, error) {
			s.Equal(20, rec.Criticidade)
			s.Equal(risk.SeverityExtremo, rec.Severidade)
			s.Equal("IR-7", rec.ID)
			return rec, nil
		})

	rec := s.postForm("/sgr/identificacaoriscos/inserir", sid, riskForm())

	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/sgr/identificacaoriscos", rec.Header().Get("Location"))
}

func (s *RouterSuite) TestRiskSubmitUpdatesByPathID() {
	sid := s.signedIn("PERFIL_ADMIN")
	form := riskForm()
	form.Set("id", "forjado")
	s.backend.EXPECT().SubmitRisk(gomock.Any(), gomock.Any(), "IR-7", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, rec risk.Record) (risk.Record, error) {
			s.Equal("IR-7", rec.ID, "the path decides which record is updated")
			return rec, nil
		})

	rec := s.postForm("/sgr/identificacaoriscos/IR-7", sid, form)

	s.Equal(http.StatusSeeOther, rec.Code)
}

func (s *RouterSuite) TestRiskSubmitInvalidRecordIsNotSent() {
	sid := s.signedIn("PERFIL_USUARIO")
	form := riskForm()
	form.Del("dataLimite")
	s.backend.EXPECT().SubmitRisk(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	rec := s.postForm("/sgr/identificacaoriscos/inserir", sid, form)

	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Contains(rec.Body.String(), "campo dataLimite inválido")
	s.Contains(rec.Body.String(), `value="Radar"`, "the form keeps what was typed")
}

func (s *RouterSuite) TestRiskSubmitBackendFailure() {
	sid := s.signedIn("PERFIL_USUARIO")
	s.backend.EXPECT().SubmitRisk(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(risk.Record{}, dErrors.New(dErrors.CodeUpstream, "Internal Server Error"))

	rec := s.postForm("/sgr/identificacaoriscos/inserir", sid, riskForm())

	s.Equal(http.StatusBadGateway, rec.Code)
	s.Contains(rec.Body.String(), "Erro ao registrar a avaliação")
}

func (s *RouterSuite) TestRiskSubmitDeniedWithoutSession() {
	s.backend.EXPECT().SubmitRisk(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	rec := s.postForm("/sgr/identificacaoriscos/inserir", "", riskForm())

	s.Equal(http.StatusFound, rec.Code)
}
