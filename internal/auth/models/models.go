package models

// Authorities granted by the identity provider.
const (
	AuthorityAdmin = "PERFIL_ADMIN"
	AuthorityUser  = "PERFIL_USUARIO"
)

// LoginResponse is the token endpoint payload. It is persisted as-is under the
// authData key; only AccessToken is ever decoded.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Capability is one entry of a screen's capability requirement. A session
// satisfies a requirement when it holds any one of the listed authorities.
type Capability struct {
	ID        int    `json:"id" yaml:"id"`
	Authority string `json:"autorizacao" yaml:"authority"`
}

// Authorities flattens a requirement into its authority strings, preserving order.
func Authorities(reqs []Capability) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Authority)
	}
	return out
}

// Profile is the cached copy of the signed-in user's display attributes.
// It is not authoritative and may lag behind the backend record.
type Profile struct {
	ID               int64        `json:"id"`
	Nome             string       `json:"nome"`
	Sobrenome        string       `json:"sobrenome"`
	Email            string       `json:"email"`
	NomeGuerra       *string      `json:"nomeGuerra"`
	Tipo             int          `json:"tipo"`
	Identidade       string       `json:"identidade"`
	Instituicao      string       `json:"instituicao"`
	Telefone         string       `json:"telefone"`
	Habilitado       bool         `json:"habilitado"`
	RegistroCompleto bool         `json:"registroCompleto"`
	Perfis           []Capability `json:"perfis"`
	Brigada          string       `json:"brigada"`
	Funcao           string       `json:"funcao"`
}

// DisplayName prefers the nome de guerra when present.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.NomeGuerra != nil && *p.NomeGuerra != "" {
		return *p.NomeGuerra
	}
	if p.Sobrenome == "" {
		return p.Nome
	}
	return p.Nome + " " + p.Sobrenome
}
