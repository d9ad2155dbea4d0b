// Package login exchanges user credentials for a bearer token using the
// backend's OAuth2 resource-owner password grant.
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"sgr/internal/auth/models"
	dErrors "sgr/pkg/domain-errors"
)

// Config locates the token endpoint and identifies this client to it.
type Config struct {
	BackendURL   string
	TokenPath    string
	ClientID     string
	ClientSecret string
}

type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

// New builds a Client. A nil httpClient uses one with a 15s timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  strings.TrimRight(cfg.BackendURL, "/") + cfg.TokenPath,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}
}

// Login returns the token endpoint's payload. Rejected credentials map to
// CodeUnauthorized; anything else the backend or network does wrong maps to
// CodeUpstream or CodeTimeout.
func (c *Client) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return models.LoginResponse{}, dErrors.New(dErrors.CodeBadRequest, "usuário e senha são obrigatórios")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return models.LoginResponse{}, classify(err)
	}

	return models.LoginResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresIn:   expiresIn(tok),
		Scope:       extraString(tok, "scope"),
	}, nil
}

func classify(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		switch re.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return dErrors.Wrap(err, dErrors.CodeUnauthorized, "usuário ou senha inválidos")
		}
		return dErrors.Wrap(err, dErrors.CodeUpstream, "servidor de autenticação indisponível")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "tempo esgotado ao autenticar")
	}
	return dErrors.Wrap(err, dErrors.CodeUpstream, "falha ao contatar o servidor de autenticação")
}

func expiresIn(tok *oauth2.Token) int {
	if v, ok := tok.Extra("expires_in").(float64); ok {
		return int(v)
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return int(time.Until(tok.Expiry).Round(time.Second).Seconds())
}

func extraString(tok *oauth2.Token, key string) string {
	s, _ := tok.Extra(key).(string)
	return s
}
