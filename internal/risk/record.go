package risk

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "sgr/pkg/domain-errors"
)

// Statuses a risk record may carry.
var Statuses = []string{"Ativo", "Fechado com impacto", "Fechado sem impacto"}

// Kinds of risk a record may describe.
var Kinds = []string{"PROJETO", "CONTRATUAL"}

// Categories a risk record may be filed under.
var Categories = []string{
	"ADMINISTRATIVA", "ECONÔMICOS", "MATERIAL", "ORGANIZACIONAL",
	"POLÍTICOS", "SERVIÇOS", "TÉCNICO", "TECNOLÓGICOS",
}

// Record is an identified risk as exchanged with the backend.
type Record struct {
	ID                  string   `json:"id" validate:"required"`
	Projeto             string   `json:"projeto" validate:"required"`
	IdentificadoPor     string   `json:"identificadoPor,omitempty"`
	Contrato            string   `json:"contrato" validate:"required"`
	TipoRisco           string   `json:"tipoRisco" validate:"required,oneof=OPERACIONAL"`
	Risco               string   `json:"risco" validate:"required,oneof=PROJETO CONTRATUAL"`
	Conjunto            string   `json:"conjunto" validate:"required"`
	Evento              string   `json:"evento"`
	DescricaoRisco      string   `json:"descricaoRisco"`
	Causa               string   `json:"causa"`
	DataRisco           string   `json:"dataRisco" validate:"required,datetime=2006-01-02"`
	Ano                 int      `json:"ano" validate:"required,gte=1900,lte=9999"`
	DataLimite          string   `json:"dataLimite" validate:"required,datetime=2006-01-02"`
	Categoria           string   `json:"categoria" validate:"required,riskcategory"`
	Probabilidade       string   `json:"probabilidade" validate:"required,risklevel"`
	Impacto             string   `json:"impacto" validate:"required,risklevel"`
	Criticidade         int      `json:"criticidade"`
	Severidade          Severity `json:"severidade"`
	Consequencia        string   `json:"consequencia"`
	Tratamento          string   `json:"tratamento"`
	ImpactoFinanceiro   string   `json:"impactoFinanceiro" validate:"required"`
	PlanoContingencia   string   `json:"planoContingencia"`
	ResponsavelRisco    string   `json:"responsavelRisco" validate:"required"`
	ResponsavelConjunto string   `json:"responsavelConjunto" validate:"required"`
	Status              string   `json:"status" validate:"required,riskstatus"`
}

var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New(validator.WithRequiredStructEnabled())
	recordValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = recordValidate.RegisterValidation("risklevel", func(fl validator.FieldLevel) bool {
		_, ok := ParseLevel(fl.Field().String())
		return ok
	})
	_ = recordValidate.RegisterValidation("riskstatus", func(fl validator.FieldLevel) bool {
		return slices.Contains(Statuses, fl.Field().String())
	})
	_ = recordValidate.RegisterValidation("riskcategory", func(fl validator.FieldLevel) bool {
		return slices.Contains(Categories, fl.Field().String())
	})
}

// Rescore overwrites criticidade and severidade from the scoring engine.
// Whatever the client sent for them is discarded; with incomplete inputs
// both are cleared. Recognized level labels are rewritten in canonical form.
func (r *Record) Rescore() (Score, bool) {
	if l, ok := ParseLevel(r.Probabilidade); ok {
		r.Probabilidade = l.String()
	}
	if l, ok := ParseLevel(r.Impacto); ok {
		r.Impacto = l.String()
	}
	score, ok := ComputeLabels(r.Probabilidade, r.Impacto)
	r.Criticidade = score.Criticality
	r.Severidade = score.Severity
	return score, ok
}

// Validate checks required fields and vocabularies. The error is a
// validation domain error naming the first offending field.
func (r *Record) Validate() error {
	err := recordValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("campo %s inválido (%s)", fe.Field(), fe.Tag()))
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, "registro de risco inválido")
}
