package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/target/mmk-admin-console/config"
	"github.com/target/mmk-admin-console/internal/apiclient"
	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/ports"
)

const (
	endpointLogin          = "/auth/login"
	endpointRegister       = "/auth/register"
	endpointLogout         = "/auth/logout"
	endpointForgotPassword = "/auth/forgot-password"
	endpointResetPassword  = "/auth/reset-password"
)

// SessionAuthorizer is what the session store needs from the authorization cache.
type SessionAuthorizer interface {
	Initialize(ctx context.Context, p domainauth.Principal) error
	Reset()
}

// SessionDeps groups the collaborators of SessionStore.
type SessionDeps struct {
	API       SessionBackend    // Required: backend client owning the bearer token
	Authz     SessionAuthorizer // Required: authorization cache
	Blobs     ports.BlobStore   // Required: persisted state
	Navigator ports.Navigator   // Required: redirect primitive
}

// SessionConfig tunes SessionStore.
type SessionConfig struct {
	Routes config.RoutesConfig
	// AwaitAuthzInit makes login and restore wait for the permission fetch.
	AwaitAuthzInit bool
	// Now overrides the clock (tests).
	Now func() time.Time
}

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Deps   SessionDeps
	Config SessionConfig
	Logger *slog.Logger // Optional: structured logger
}

// Result is the outcome of a session operation. Failures are carried in
// Error rather than returned, so callers never have to handle a Go error.
type Result struct {
	Success bool             `json:"success"`
	User    *domainauth.User `json:"user,omitempty"`
	Error   string           `json:"error,omitempty"`
	// Code is the error kind when Success is false.
	Code apperrors.ErrorCode `json:"code,omitempty"`
}

func failure(err error, fallback string) Result {
	msg := apperrors.Message(err)
	if msg == "" {
		msg = fallback
	}
	return Result{Error: msg, Code: apperrors.GetCode(err)}
}

// SessionStore owns the single authenticated session of the console.
type SessionStore struct {
	api       SessionBackend
	authz     SessionAuthorizer
	blobs     ports.BlobStore
	navigator ports.Navigator
	routes    config.RoutesConfig
	await     bool
	now       func() time.Time
	logger    *slog.Logger

	mu         sync.RWMutex
	session    domainauth.Session
	lastErr    string
	onClear    []func()
	loggingOut atomic.Bool
}

// NewSessionStore constructs a new SessionStore.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	d := opts.Deps
	if d.API == nil || d.Authz == nil || d.Blobs == nil || d.Navigator == nil {
		panic("SessionStore requires API, Authz, Blobs and Navigator")
	}

	routes := opts.Config.Routes
	routes.Sanitize()

	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionStore{
		api:       d.API,
		authz:     d.Authz,
		blobs:     d.Blobs,
		navigator: d.Navigator,
		routes:    routes,
		await:     opts.Config.AwaitAuthzInit,
		now:       now,
		logger:    logger.With("component", "session"),
	}
}

// Login authenticates with email and password. On success the session is
// stored, persisted, authorization is initialized and the console navigates
// to the landing page.
func (s *SessionStore) Login(ctx context.Context, req domainauth.LoginRequest) Result {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return s.fail(err, "Login failed")
	}
	return s.authenticate(ctx, endpointLogin, req, "Login failed")
}

// Register creates an account and signs into it, like Login.
func (s *SessionStore) Register(ctx context.Context, req domainauth.RegisterRequest) Result {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return s.fail(err, "Registration failed")
	}
	return s.authenticate(ctx, endpointRegister, req, "Registration failed")
}

func validateCredentials(email, password string) error {
	switch {
	case email == "":
		return apperrors.ValidationField("email", "Email is required")
	case !strings.Contains(email, "@"):
		return apperrors.ValidationField("email", "Email is invalid")
	case password == "":
		return apperrors.ValidationField("password", "Password is required")
	}
	return nil
}

func (s *SessionStore) authenticate(ctx context.Context, endpoint string, body any, fallback string) Result {
	var resp domainauth.AuthResponse
	if err := s.api.AuthPost(ctx, endpoint, body, &resp); err != nil {
		s.clear(ctx)
		return s.fail(err, fallback)
	}
	if resp.AccessToken == "" {
		s.clear(ctx)
		return s.fail(apperrors.Unknown("Authentication response carried no token"), fallback)
	}

	user := resp.ToUser()
	roleID := resp.EffectiveRoleID()
	sess := domainauth.Session{
		User:            &user,
		Token:           resp.AccessToken,
		RoleID:          &roleID,
		IsAuthenticated: true,
	}

	s.api.SetToken(sess.Token)
	s.mu.Lock()
	s.session = sess
	s.lastErr = ""
	s.mu.Unlock()

	s.persist(ctx, sess)
	s.initAuthorization(ctx, "login")

	if err := s.navigator.NavigateTo(ctx, s.routes.Landing); err != nil {
		s.logger.WarnContext(ctx, "navigate after login failed", "error", err)
	}

	s.logger.InfoContext(ctx, "signed in", "user_id", user.ID, "role", user.Role)
	u := user
	return Result{Success: true, User: &u}
}

func (s *SessionStore) fail(err error, fallback string) Result {
	r := failure(err, fallback)
	s.mu.Lock()
	s.lastErr = r.Error
	s.mu.Unlock()
	return r
}

// initAuthorization starts the authorization fetch for the current principal,
// waiting for it when configured to.
func (s *SessionStore) initAuthorization(ctx context.Context, reason string) {
	p, ok := s.Principal()
	if !ok {
		return
	}
	run := func(ctx context.Context) {
		if err := s.authz.Initialize(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "initialize authorization failed", "reason", reason, "error", err)
		}
	}
	if s.await {
		run(ctx)
		return
	}
	go run(context.WithoutCancel(ctx))
}

// Logout tears the session down. The server call is best effort; local
// state, persisted state and the authorization cache are always cleared and
// the console navigates to the entry page. Calls made while a logout is
// already running return immediately.
func (s *SessionStore) Logout(ctx context.Context) {
	if !s.loggingOut.CompareAndSwap(false, true) {
		return
	}
	defer s.loggingOut.Store(false)

	if s.api.Token() != "" {
		err := s.api.Request(ctx, endpointLogout, apiclient.RequestOptions{
			Method:            http.MethodPost,
			SkipErrorHandling: true,
		}, nil)
		if err != nil {
			s.logger.WarnContext(ctx, "logout call failed", "error", err)
		}
	}

	s.clear(ctx)

	if err := s.navigator.NavigateTo(ctx, s.routes.Entry); err != nil {
		s.logger.WarnContext(ctx, "navigate after logout failed", "error", err)
	}
}

// HandleTokenExpired is the API client's expiry hook.
func (s *SessionStore) HandleTokenExpired(ctx context.Context) {
	s.logger.InfoContext(ctx, "token expired, signing out")
	s.Logout(ctx)
}

// OnClear registers fn to run whenever the session is cleared, whether by
// logout, token expiry or a failed sign-in.
func (s *SessionStore) OnClear(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onClear = append(s.onClear, fn)
	s.mu.Unlock()
}

// clear drops the in-memory session, the token, the authorization cache and the persisted blob.
func (s *SessionStore) clear(ctx context.Context) {
	s.api.ClearToken()
	s.authz.Reset()

	s.mu.Lock()
	s.session = domainauth.Session{}
	hooks := slices.Clone(s.onClear)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	if err := s.blobs.Delete(ctx, ports.KeySession); err != nil {
		s.logger.WarnContext(ctx, "clear persisted session failed", "error", err)
	}
}

// ForgotPassword asks the backend to send a reset email.
func (s *SessionStore) ForgotPassword(ctx context.Context, email string) Result {
	email = strings.TrimSpace(email)
	if email == "" {
		return s.fail(apperrors.ValidationField("email", "Email is required"), "Failed to send reset email")
	}
	if err := s.api.AuthPost(ctx, endpointForgotPassword, map[string]string{"email": email}, nil); err != nil {
		return s.fail(err, "Failed to send reset email")
	}
	return Result{Success: true}
}

// ResetPassword completes a reset with the emailed token.
func (s *SessionStore) ResetPassword(ctx context.Context, resetToken, password string) Result {
	switch {
	case strings.TrimSpace(resetToken) == "":
		return s.fail(apperrors.ValidationField("token", "Reset token is required"), "Password reset failed")
	case password == "":
		return s.fail(apperrors.ValidationField("password", "Password is required"), "Password reset failed")
	}
	body := map[string]string{"token": resetToken, "password": password}
	if err := s.api.AuthPost(ctx, endpointResetPassword, body, nil); err != nil {
		return s.fail(err, "Password reset failed")
	}
	return Result{Success: true}
}

// Initialize restores the persisted session at startup. A token plus a
// cached user is enough to count as authenticated; no network call is made
// to confirm it. Tokens whose exp claim has passed are discarded.
// Authorization is then initialized for the restored principal.
func (s *SessionStore) Initialize(ctx context.Context) bool {
	if !s.restore(ctx) {
		return false
	}
	s.initAuthorization(ctx, "restore")
	return true
}

// CheckAuth reports whether a usable session exists, restoring it from
// persisted state when memory is empty.
func (s *SessionStore) CheckAuth(ctx context.Context) bool {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()

	if sess.Token == "" {
		return s.restore(ctx)
	}
	if !sess.Restorable() || domainauth.TokenExpired(sess.Token, s.now()) {
		s.clear(ctx)
		return false
	}
	s.api.SetToken(sess.Token)
	s.mu.Lock()
	s.session.IsAuthenticated = true
	s.mu.Unlock()
	return true
}

func (s *SessionStore) restore(ctx context.Context) bool {
	sess, err := s.hydrate(ctx)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			s.logger.WarnContext(ctx, "restore session failed", "error", err)
			s.clear(ctx)
		}
		return false
	}
	if !sess.Restorable() {
		s.clear(ctx)
		return false
	}
	if domainauth.TokenExpired(sess.Token, s.now()) {
		s.logger.InfoContext(ctx, "persisted token expired, discarding session")
		s.clear(ctx)
		return false
	}

	sess.IsAuthenticated = true
	s.api.SetToken(sess.Token)
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	return true
}

func (s *SessionStore) hydrate(ctx context.Context) (domainauth.Session, error) {
	data, err := s.blobs.Get(ctx, ports.KeySession)
	if err != nil {
		return domainauth.Session{}, err
	}
	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("decode persisted session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) persist(ctx context.Context, sess domainauth.Session) {
	data, err := json.Marshal(sess)
	if err != nil {
		s.logger.WarnContext(ctx, "encode session failed", "error", err)
		return
	}
	if err := s.blobs.Set(ctx, ports.KeySession, data); err != nil {
		s.logger.WarnContext(ctx, "persist session failed", "error", err)
	}
}

// Session returns a copy of the current session.
func (s *SessionStore) Session() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.session
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	if sess.RoleID != nil {
		id := *sess.RoleID
		sess.RoleID = &id
	}
	return sess
}

// IsAuthenticated reports whether a session is active.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated
}

// Principal returns who authorization questions are asked for.
func (s *SessionStore) Principal() (domainauth.Principal, bool) {
	return s.Session().Principal()
}

// User returns the signed-in user, if any.
func (s *SessionStore) User() (domainauth.User, bool) {
	sess := s.Session()
	if sess.User == nil {
		return domainauth.User{}, false
	}
	return *sess.User, true
}

// LastError is the message of the most recent failed operation.
func (s *SessionStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *SessionStore) role() domainauth.RoleCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session.User == nil {
		return ""
	}
	return s.session.User.Role
}

// HasRole reports whether the user's role category is r.
func (s *SessionStore) HasRole(r domainauth.RoleCategory) bool {
	return s.role() == r
}

// IsAdmin reports whether the user is in the admin category.
func (s *SessionStore) IsAdmin() bool {
	return s.HasRole(domainauth.RoleAdmin)
}

// CanManage reports whether the user is an admin or a manager.
func (s *SessionStore) CanManage() bool {
	switch s.role() {
	case domainauth.RoleAdmin, domainauth.RoleManager:
		return true
	}
	return false
}

// CanAccessFinancials reports whether the user may see financial views.
func (s *SessionStore) CanAccessFinancials() bool {
	switch s.role() {
	case domainauth.RoleAdmin, domainauth.RoleFinancial, domainauth.RoleManager:
		return true
	}
	return false
}

// CanAccessTechnical reports whether the user may see technical views.
func (s *SessionStore) CanAccessTechnical() bool {
	switch s.role() {
	case domainauth.RoleAdmin, domainauth.RoleTechnical, domainauth.RoleManager:
		return true
	}
	return false
}

// UserName is the display name, "User" when unknown.
func (s *SessionStore) UserName() string {
	if u, ok := s.User(); ok && u.Name != "" {
		return u.Name
	}
	return "User"
}

// UserEmail is the signed-in email or "".
func (s *SessionStore) UserEmail() string {
	if u, ok := s.User(); ok {
		return u.Email
	}
	return ""
}
