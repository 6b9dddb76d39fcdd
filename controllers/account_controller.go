package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/middleware"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

const (
	msgBadCredentials   = "Please enter a correct username and password."
	msgOAuthUnavailable = "This login provider is not available."
)

var (
	errUsernameTaken    = errors.New("username already exists")
	errOAuthUnavailable = errors.New("oauth provider not configured")
)

type signupForm struct {
	Username  string `form:"username" binding:"required,min=3,max=64"`
	Email     string `form:"email" binding:"omitempty,email"`
	Password1 string `form:"password1" binding:"required,min=8"`
	Password2 string `form:"password2" binding:"required,eqfield=Password1"`
}

// AccountController handles local signup/login/logout and third-party OAuth logins.
type AccountController struct {
	db *gorm.DB
	// httpClient fetches OAuth user profiles.
	httpClient *http.Client
}

// NewAccountController creates an AccountController.
func NewAccountController(db *gorm.DB) *AccountController {
	return &AccountController{db: db, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// SignupForm renders the registration page.
func (a *AccountController) SignupForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "signup.html", gin.H{
		"title":  "Register",
		"form":   signupForm{},
		"errors": map[string]string{},
	})
}

// Signup creates a local account and signs the new user in.
func (a *AccountController) Signup(ctx *gin.Context) {
	form := signupForm{
		Username:  trimmed(ctx, "username"),
		Email:     trimmed(ctx, "email"),
		Password1: ctx.PostForm("password1"),
		Password2: ctx.PostForm("password2"),
	}
	errs := validationErrors(binding.Validator.ValidateStruct(&form))
	if _, ok := errs["username"]; !ok && !validUsername(form.Username) {
		errs["username"] = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}

	var user *models.User
	if len(errs) == 0 {
		var err error
		user, err = a.createLocalUser(form)
		switch {
		case errors.Is(err, errUsernameTaken):
			errs["username"] = "A user with that username already exists."
		case err != nil:
			serverError(ctx, err, "failed to create user")
			return
		}
	}
	if len(errs) > 0 {
		form.Password1, form.Password2 = "", ""
		render(ctx, http.StatusBadRequest, "signup.html", gin.H{
			"title":  "Register",
			"form":   form,
			"errors": errs,
		})
		return
	}

	if err := a.signIn(ctx, user); err != nil {
		serverError(ctx, err, "failed to generate token")
		return
	}
	utils.Sugar.Infow("user registered", "user", user.ID, "username", user.Username)
	redirectWithFlash(ctx, middleware.FlashSuccess, "Successfully signed in as "+user.Username+".", "/")
}

func (a *AccountController) createLocalUser(form signupForm) (*models.User, error) {
	taken, err := models.UsernameTaken(a.db, form.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errUsernameTaken
	}
	hash, err := utils.HashPassword(form.Password1)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: form.Username, Email: form.Email, PasswordHash: hash}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LoginForm renders the login page.
func (a *AccountController) LoginForm(ctx *gin.Context) {
	a.renderLogin(ctx, http.StatusOK, "", ctx.Query("next"), "")
}

// Login verifies credentials, stores the token cookie and sends the user on to ?next=.
func (a *AccountController) Login(ctx *gin.Context) {
	username := trimmed(ctx, "username")
	next := ctx.PostForm("next")

	user, err := a.authenticate(username, ctx.PostForm("password"))
	if err != nil {
		a.renderLogin(ctx, http.StatusOK, username, next, msgBadCredentials)
		return
	}
	if err := a.signIn(ctx, user); err != nil {
		serverError(ctx, err, "failed to generate token")
		return
	}
	redirectWithFlash(ctx, middleware.FlashSuccess, "Successfully signed in as "+user.Username+".", safeNext(next))
}

// Logout revokes the current token and clears the cookie.
func (a *AccountController) Logout(ctx *gin.Context) {
	revokeCurrentToken(ctx)
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, "", -1, "/", "", config.Get().App.SecureCookies, true)
	redirectWithFlash(ctx, middleware.FlashSuccess, "You have signed out.", "/")
}

// APILogin is the JSON variant of Login used by scripts and the staff API.
func (a *AccountController) APILogin(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	user, err := a.authenticate(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": userResponse(*user)})
}

// APILogout revokes the bearer token.
func (a *AccountController) APILogout(ctx *gin.Context) {
	revokeCurrentToken(ctx)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AccountController) Me(ctx *gin.Context) {
	var user models.User
	if err := a.db.First(&user, middleware.CurrentUserID(ctx)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, userResponse(user))
}

func (a *AccountController) authenticate(username, password string) (*models.User, error) {
	var user models.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, errors.New("password mismatch")
	}
	return &user, nil
}

func (a *AccountController) renderLogin(ctx *gin.Context, status int, username, next, errMsg string) {
	render(ctx, status, "login.html", gin.H{
		"title":           "Log in",
		"username":        username,
		"next":            safeNext(next),
		"error":           errMsg,
		"oauth_providers": configuredProviders(),
	})
}

// signIn issues a token for user and stores it in the HttpOnly cookie.
func (a *AccountController) signIn(ctx *gin.Context, user *models.User) error {
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		return err
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, token, int(utils.TokenTTL.Seconds()), "/", "", config.Get().App.SecureCookies, true)
	return nil
}

func revokeCurrentToken(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		return
	}
	expiresAt := time.Now().Add(utils.TokenTTL)
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
}

// OAuthRedirect sends the browser to the provider's consent page.
func (a *AccountController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		redirectWithFlash(ctx, middleware.FlashError, msgOAuthUnavailable, middleware.LoginPath)
		return
	}
	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	ctx.Redirect(http.StatusFound, cfg.AuthCodeURL(state))
}

// OAuthCallback exchanges the authorization code for a user identity and signs the user in.
func (a *AccountController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || !utils.ConsumeState(state) {
		redirectWithFlash(ctx, middleware.FlashError, "Social login failed: invalid or expired state.", middleware.LoginPath)
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		redirectWithFlash(ctx, middleware.FlashError, msgOAuthUnavailable, middleware.LoginPath)
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()
	reqCtx = context.WithValue(reqCtx, oauth2.HTTPClient, a.httpClient)

	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Sugar.Warnw("oauth exchange failed", "provider", provider, "err", err)
		redirectWithFlash(ctx, middleware.FlashError, "Social login failed.", middleware.LoginPath)
		return
	}
	info, err := a.fetchOAuthUser(reqCtx, cfg, provider, token)
	if err != nil {
		utils.Sugar.Warnw("oauth user lookup failed", "provider", provider, "err", err)
		redirectWithFlash(ctx, middleware.FlashError, "Social login failed.", middleware.LoginPath)
		return
	}
	user, err := a.findOrCreateOAuthUser(provider, info)
	if err != nil {
		serverError(ctx, err, "failed to persist user")
		return
	}
	if err := a.signIn(ctx, user); err != nil {
		serverError(ctx, err, "failed to generate token")
		return
	}
	redirectWithFlash(ctx, middleware.FlashSuccess, "Successfully signed in as "+user.Username+".", "/")
}

func configuredProviders() []string {
	oc := config.Get().OAuth
	var out []string
	if oc.GitHubClientID != "" && oc.GitHubClientSecret != "" {
		out = append(out, "github")
	}
	if oc.GoogleClientID != "" && oc.GoogleClientSecret != "" {
		out = append(out, "google")
	}
	return out
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	callback := func(p string) string {
		return fmt.Sprintf("%s/accounts/oauth/%s/callback/", strings.TrimRight(cfg.App.OAuthRedirectBase, "/"), p)
	}
	switch strings.ToLower(provider) {
	case "github":
		if cfg.OAuth.GitHubClientID == "" || cfg.OAuth.GitHubClientSecret == "" {
			return nil, errOAuthUnavailable
		}
		return &oauth2.Config{
			ClientID:     cfg.OAuth.GitHubClientID,
			ClientSecret: cfg.OAuth.GitHubClientSecret,
			RedirectURL:  callback("github"),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.OAuth.GoogleClientID == "" || cfg.OAuth.GoogleClientSecret == "" {
			return nil, errOAuthUnavailable
		}
		return &oauth2.Config{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  callback("google"),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errOAuthUnavailable, provider)
	}
}

type oauthUser struct {
	ID       string
	Username string
	Email    string
}

func (a *AccountController) fetchOAuthUser(ctx context.Context, cfg *oauth2.Config, provider string, token *oauth2.Token) (*oauthUser, error) {
	client := cfg.Client(ctx, token)
	switch provider {
	case "github":
		var payload struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Email string `json:"email"`
		}
		if err := getJSON(client, "https://api.github.com/user", &payload); err != nil {
			return nil, err
		}
		if payload.Email == "" {
			payload.Email = fetchGitHubEmail(client)
		}
		return &oauthUser{ID: fmt.Sprintf("%d", payload.ID), Username: payload.Login, Email: payload.Email}, nil
	case "google":
		var payload struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		}
		if err := getJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
			return nil, err
		}
		local, _, _ := strings.Cut(payload.Email, "@")
		return &oauthUser{ID: payload.ID, Username: local, Email: payload.Email}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchGitHubEmail(client *http.Client) string {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(client, "https://api.github.com/user/emails", &emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

func getJSON(client *http.Client, url string, v interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (a *AccountController) findOrCreateOAuthUser(provider string, data *oauthUser) (*models.User, error) {
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
	if err == nil {
		if email := strings.TrimSpace(data.Email); email != "" && email != user.Email {
			_ = a.db.Model(&user).Update("email", email).Error
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	username, err := models.UniqueUsername(a.db, data.Username, provider+"_"+data.ID)
	if err != nil {
		return nil, err
	}
	user = models.User{
		Username:   username,
		Email:      strings.TrimSpace(data.Email),
		Provider:   provider,
		ProviderID: data.ID,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func validUsername(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '@' || r == '.' || r == '+' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"provider":   user.Provider,
		"created_at": user.CreatedAt,
		"is_staff":   config.Get().IsAdminUsername(user.Username),
	}
}
