package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"sgr/internal/auth/guard"
	"sgr/internal/risk"
	"sgr/internal/screens"
	dErrors "sgr/pkg/domain-errors"
	"sgr/pkg/platform/httputil"
	"sgr/pkg/requestcontext"
)

const riskFormTitle = "Identificação de Risco"

type scoreRequest struct {
	Probabilidade string `json:"probabilidade"`
	Impacto       string `json:"impacto"`
}

type scoreResponse struct {
	Scored bool `json:"scored"`
	risk.Score
}

// handleScore is the form's live scoring call. It only answers signed-in
// sessions; incomplete inputs are not an error, just unscored.
func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.sessions.State(requestcontext.SessionID(ctx)).IsAuthenticated(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "sessão expirada"))
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid score request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	score, ok := risk.ComputeLabels(req.Probabilidade, req.Impacto)
	if ok {
		h.metrics.ObserveScore(string(score.Severity))
	}
	httputil.WriteJSON(w, http.StatusOK, scoreResponse{Scored: ok, Score: score})
}

// handleRiskForm opens an empty form for the create slug, otherwise loads
// the record being edited.
func (h *Handler) handleRiskForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	editID := editTarget(r)
	if editID == "" {
		h.render(w, r, http.StatusOK, screens.PageRiskForm, riskFormTitle, screens.NewRiskForm(risk.Record{}, ""))
		return
	}

	bearer, ok := h.sessions.State(requestcontext.SessionID(ctx)).Bearer(ctx)
	if !ok {
		http.Redirect(w, r, guard.LoginURL(r.URL.RequestURI()), http.StatusFound)
		return
	}
	rec, err := h.backend.Risk(ctx, bearer, editID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			http.Redirect(w, r, notFoundPath, http.StatusFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load risk record",
			"id", editID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		form := screens.NewRiskForm(risk.Record{ID: editID}, editID)
		form.Error = "Erro ao carregar a avaliação: " + httputil.Message(err)
		h.render(w, r, dErrors.ToHTTPStatus(dErrors.CodeOf(err)), screens.PageRiskForm, riskFormTitle, form)
		return
	}
	h.render(w, r, http.StatusOK, screens.PageRiskForm, riskFormTitle, screens.NewRiskForm(rec, editID))
}

// handleRiskSubmit scores the record with the engine, whatever the client
// sent, and creates or updates it in the backend.
func (h *Handler) handleRiskSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	editID := editTarget(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		form := screens.NewRiskForm(risk.Record{}, editID)
		form.Error = "Formulário inválido"
		h.render(w, r, http.StatusBadRequest, screens.PageRiskForm, riskFormTitle, form)
		return
	}
	rec := recordFromForm(r)
	if editID != "" {
		rec.ID = editID
	}
	rec.Rescore()

	if err := rec.Validate(); err != nil {
		form := screens.NewRiskForm(rec, editID)
		form.Error = httputil.Message(err)
		h.render(w, r, http.StatusUnprocessableEntity, screens.PageRiskForm, riskFormTitle, form)
		return
	}

	bearer, ok := h.sessions.State(requestcontext.SessionID(ctx)).Bearer(ctx)
	if !ok {
		http.Redirect(w, r, guard.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}

	saved, err := h.backend.SubmitRisk(ctx, bearer, editID, rec)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to submit risk record",
			"id", rec.ID,
			"error", err,
			"request_id", requestID,
		)
		verb := "registrar"
		if editID != "" {
			verb = "atualizar"
		}
		form := screens.NewRiskForm(rec, editID)
		form.Error = "Erro ao " + verb + " a avaliação: " + httputil.Message(err)
		h.render(w, r, dErrors.ToHTTPStatus(dErrors.CodeOf(err)), screens.PageRiskForm, riskFormTitle, form)
		return
	}

	h.metrics.ObserveScore(string(saved.Severidade))
	h.logger.InfoContext(ctx, "risk record saved",
		"id", saved.ID,
		"severity", saved.Severidade,
		"request_id", requestID,
	)
	http.Redirect(w, r, screens.RiskFormPath, http.StatusSeeOther)
}

// editTarget is the record id in the URL, or "" for the create slug.
func editTarget(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if id == screens.RiskCreateSlug {
		return ""
	}
	return id
}

func recordFromForm(r *http.Request) risk.Record {
	v := func(name string) string { return strings.TrimSpace(r.PostFormValue(name)) }
	ano, _ := strconv.Atoi(v("ano"))
	return risk.Record{
		ID:                  v("id"),
		Projeto:             v("projeto"),
		IdentificadoPor:     v("identificadoPor"),
		Contrato:            v("contrato"),
		TipoRisco:           v("tipoRisco"),
		Risco:               v("risco"),
		Conjunto:            v("conjunto"),
		Evento:              v("evento"),
		DescricaoRisco:      v("descricaoRisco"),
		Causa:               v("causa"),
		DataRisco:           v("dataRisco"),
		Ano:                 ano,
		DataLimite:          v("dataLimite"),
		Categoria:           v("categoria"),
		Probabilidade:       v("probabilidade"),
		Impacto:             v("impacto"),
		Consequencia:        v("consequencia"),
		Tratamento:          v("tratamento"),
		ImpactoFinanceiro:   v("impactoFinanceiro"),
		PlanoContingencia:   v("planoContingencia"),
		ResponsavelRisco:    v("responsavelRisco"),
		ResponsavelConjunto: v("responsavelConjunto"),
		Status:              v("status"),
	}
}
