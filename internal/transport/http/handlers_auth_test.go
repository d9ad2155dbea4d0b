package httptransport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/mock/gomock"

	"sgr/internal/audit"
	"sgr/internal/auth/models"
	"sgr/internal/auth/store"
	dErrors "sgr/pkg/domain-errors"
	"sgr/pkg/testutil"
)

func credentials(from string) url.Values {
	return url.Values{"username": {"ana"}, "password": {"segredo"}, "from": {from}}
}

func (s *RouterSuite) TestLoginPageCarriesOrigin() {
	rec := s.get("/sgr/login?from=%2Fsgr%2Fom", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `name="from" value="/sgr/om"`)
}

func (s *RouterSuite) TestLoginPageRedirectsSignedInVisitor() {
	sid := s.signedIn("PERFIL_USUARIO")

	rec := s.get("/sgr/login?from=%2Fsgr%2Facompanhamentos", sid)

	s.Equal(http.StatusFound, rec.Code)
	s.Equal("/sgr/acompanhamentos", rec.Header().Get("Location"))
}

func (s *RouterSuite) TestLoginSucceedsAndReturnsToOrigin() {
	resp := testutil.LoginResponse(s.T(), time.Now().Add(time.Hour), models.AuthorityUser)
	s.auth.EXPECT().Login(gomock.Any(), "ana", "segredo").Return(resp, nil)
	s.backend.EXPECT().Profile(gomock.Any(), resp.AccessToken).
		Return(&models.Profile{ID: 3, Nome: "Ana", Sobrenome: "Souza"}, nil)

	rec := s.postForm("/sgr/login", "", credentials("/sgr/identificacaoriscos"))

	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/sgr/identificacaoriscos", rec.Header().Get("Location"))
	cookie := testutil.SessionCookie(s.T(), rec, cookieCfg.Name)
	s.True(cookie.HttpOnly)

	stored, err := store.AuthData(context.Background(), s.provider.ForSession(cookie.Value))
	s.Require().NoError(err)
	s.Equal(resp, stored, "the login payload is persisted unmodified")

	home := s.get("/sgr", cookie.Value)
	s.Equal(http.StatusOK, home.Code)
	s.Contains(home.Body.String(), "Sair (Ana Souza)")

	logins := s.audit.ofType(audit.EventLogin)
	s.Require().Len(logins, 1)
	s.Equal(cookie.Value, logins[0].SessionID)
	s.Equal("usuario.teste", logins[0].User)
}

func (s *RouterSuite) TestLoginRotatesAnExistingSession() {
	old := s.signedIn("PERFIL_USUARIO")
	resp := testutil.LoginResponse(s.T(), time.Now().Add(time.Hour), models.AuthorityAdmin)
	s.auth.EXPECT().Login(gomock.Any(), "ana", "segredo").Return(resp, nil)
	s.backend.EXPECT().Profile(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeUpstream, "offline"))

	rec := s.postForm("/sgr/login", old, credentials(""))

	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/sgr", rec.Header().Get("Location"))
	s.NotEqual(old, testutil.SessionCookie(s.T(), rec, cookieCfg.Name).Value)
	_, err := store.AuthData(context.Background(), s.provider.ForSession(old))
	s.Error(err, "the previous session is cleared")
}

func (s *RouterSuite) TestLoginIgnoresForeignReturnTarget() {
	resp := testutil.LoginResponse(s.T(), time.Now().Add(time.Hour), models.AuthorityUser)
	s.auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(resp, nil)
	s.backend.EXPECT().Profile(gomock.Any(), gomock.Any()).Return(nil, errors.New("no profile"))

	rec := s.postForm("/sgr/login", "", credentials("https://evil.example/sgr"))

	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/sgr", rec.Header().Get("Location"))
}

func (s *RouterSuite) TestLoginWithBadCredentials() {
	s.auth.EXPECT().Login(gomock.Any(), "ana", "segredo").
		Return(models.LoginResponse{}, dErrors.New(dErrors.CodeUnauthorized, "usuário ou senha inválidos"))
	s.backend.EXPECT().Profile(gomock.Any(), gomock.Any()).Times(0)

	rec := s.postForm("/sgr/login", "", credentials("/sgr/om"))

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(rec.Body.String(), "Usuário ou senha inválidos")
	s.Contains(rec.Body.String(), `name="from" value="/sgr/om"`)
	s.Empty(rec.Result().Cookies())
	failed := s.audit.ofType(audit.EventLoginFailed)
	s.Require().Len(failed, 1)
	s.Equal("ana", failed[0].User)
}

func (s *RouterSuite) TestLoginThrottledAfterRepeatedFailures() {
	s.auth.EXPECT().Login(gomock.Any(), "ana", "segredo").
		Return(models.LoginResponse{}, dErrors.New(dErrors.CodeUnauthorized, "usuário ou senha inválidos")).
		Times(loginAttempts)

	for range loginAttempts {
		s.Equal(http.StatusUnauthorized, s.postForm("/sgr/login", "", credentials("")).Code)
	}
	rec := s.postForm("/sgr/login", "", credentials("/sgr/om"))

	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))
	s.Contains(rec.Body.String(), "Muitas tentativas de acesso")
	s.Contains(rec.Body.String(), `name="from" value="/sgr/om"`)
	limited := s.audit.ofType(audit.EventLoginLimited)
	s.Require().Len(limited, 1)
	s.Equal("ana", limited[0].User)
}

func (s *RouterSuite) TestLoginWithMissingFields() {
	s.auth.EXPECT().Login(gomock.Any(), "", "").
		Return(models.LoginResponse{}, dErrors.New(dErrors.CodeBadRequest, "usuário e senha são obrigatórios"))

	rec := s.postForm("/sgr/login", "", url.Values{})

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "usuário e senha são obrigatórios")
}

func (s *RouterSuite) TestLoginWhenProviderIsDown() {
	s.auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.LoginResponse{}, dErrors.New(dErrors.CodeUpstream, "servidor de autenticação indisponível"))

	rec := s.postForm("/sgr/login", "", credentials(""))

	s.Equal(http.StatusBadGateway, rec.Code)
	s.Contains(rec.Body.String(), "Não foi possível entrar agora")
}

func (s *RouterSuite) TestLoginRejectsAnAlreadyExpiredToken() {
	resp := testutil.LoginResponse(s.T(), time.Now().Add(-time.Minute), models.AuthorityUser)
	s.auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(resp, nil)
	s.backend.EXPECT().Profile(gomock.Any(), gomock.Any()).Return(nil, errors.New("unauthorized"))

	rec := s.postForm("/sgr/login", "", credentials(""))

	s.Equal(http.StatusBadGateway, rec.Code)
	s.Empty(rec.Result().Cookies())
	s.Equal(0, s.sessions.Len())
}

func (s *RouterSuite) TestLogoutEndsTheSession() {
	sid := s.signedIn("PERFIL_ADMIN")
	s.Equal(http.StatusOK, s.get("/sgr", sid).Code)

	rec := s.postForm("/sgr/logout", sid, url.Values{})

	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/sgr/login", rec.Header().Get("Location"))
	s.Equal(-1, testutil.SessionCookie(s.T(), rec, cookieCfg.Name).MaxAge)
	s.Require().Len(s.audit.ofType(audit.EventLogout), 1)

	after := s.get("/sgr", sid)
	s.Equal(http.StatusFound, after.Code, "the old cookie no longer authenticates")
}

func (s *RouterSuite) TestLogoutWithoutSessionIsHarmless() {
	rec := s.postForm("/sgr/logout", "", url.Values{})

	s.Equal(http.StatusSeeOther, rec.Code)
	s.Empty(s.audit.ofType(audit.EventLogout))
}
