// Package github implementa el adapter OAuth 2.0 de GitHub. A diferencia
// de Google no hay ID token: el perfil se obtiene con una llamada extra a
// la API (/user, con fallback a /user/emails porque el email puede venir
// privado).
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/hellogate/internal/identity"
)

const (
	authEndpoint  = "https://github.com/login/oauth/authorize"
	tokenEndpoint = "https://github.com/login/oauth/access_token"
	userEndpoint  = "https://api.github.com/user"
	emailEndpoint = "https://api.github.com/user/emails"
)

type Adapter struct {
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       []string

	http *http.Client
}

func New(clientID, clientSecret, redirectURL string) *Adapter {
	return &Adapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		scopes:       []string{"read:user", "user:email"},
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Adapter) Name() identity.Provider { return identity.ProviderGitHub }

// AuthURL arma la URL de autorización. GitHub no soporta nonce; ya viaja
// dentro del JWT de state.
func (g *Adapter) AuthURL(_ context.Context, state, _ string) (string, error) {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", g.clientID)
	q.Set("redirect_uri", g.redirectURL)
	q.Set("scope", strings.Join(g.scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (g *Adapter) Authenticate(ctx context.Context, code, _ string) (identity.Identity, error) {
	accessToken, err := g.exchangeCode(ctx, code)
	if err != nil {
		return identity.Identity{}, err
	}

	info, err := g.userInfo(ctx, accessToken)
	if err != nil {
		return identity.Identity{}, err
	}

	email := info.Email
	if email == "" {
		// Email privado: probar con /user/emails. Si tampoco hay, se
		// tolera vacío (el snapshot lo admite).
		if e, err := g.primaryEmail(ctx, accessToken); err == nil {
			email = e
		}
	}

	display := info.Name
	if display == "" {
		display = info.Login
	}

	id := identity.Identity{
		ExternalID:  strconv.FormatInt(info.ID, 10),
		Provider:    identity.ProviderGitHub,
		DisplayName: display,
		Email:       email,
		AvatarURL:   info.AvatarURL,
	}
	return id, id.Validate()
}

func (g *Adapter) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", g.clientID)
	form.Set("client_secret", g.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", g.redirectURL)

	req, err := http.NewRequestWithContext(ctx, "POST", tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var tr struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("github: decode token response: %w", err)
	}
	if tr.Error != "" {
		return "", fmt.Errorf("github: oauth error: %s - %s", tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("github: no access_token in response")
	}
	return tr.AccessToken, nil
}

type userInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (g *Adapter) userInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	var info userInfo
	if err := g.getJSON(ctx, userEndpoint, accessToken, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (g *Adapter) primaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.getJSON(ctx, emailEndpoint, accessToken, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", fmt.Errorf("github: no email found")
}

func (g *Adapter) getJSON(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github: api error: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
