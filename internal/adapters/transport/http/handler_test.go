package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/db/postgres"
	redisRepo "github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/db/redis"
	authhttp "github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http/validation"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/gate"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/hasher"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/config"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

type outbox struct {
	mu   sync.Mutex
	sent map[string]string
}

func (o *outbox) Deliver(_ context.Context, purpose model.TokenPurpose, email, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[string(purpose)+":"+email] = token
	return nil
}

func (o *outbox) last(purpose model.TokenPurpose, email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent[string(purpose)+":"+email]
}

/* ───────────────────────────── helpers ───────────────────────────── */

const (
	email    = "alice@example.com"
	password = "Passw0rd!"
)

type env struct {
	t      *testing.T
	router *gin.Engine
	outbox *outbox
}

func testConfig() *config.Config {
	return &config.Config{
		Tokens: config.TokenConfig{
			Access:         config.TokenSettings{Secret: "access", TTL: 15 * time.Minute},
			Refresh:        config.TokenSettings{Secret: "refresh", TTL: time.Hour},
			EmailVerify:    config.TokenSettings{Secret: "verify", TTL: time.Hour},
			ForgotPassword: config.TokenSettings{Secret: "forgot", TTL: time.Hour},
		},
		Hasher: config.HasherConfig{Algorithm: config.HasherSHA256, Secret: "pepper"},
	}
}

func newEnv(t *testing.T, opts authhttp.RouterOptions) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, postgres.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	users := postgres.NewPostgresUserRepo(db)
	tokens := redisRepo.NewRedisTokenRepo(rdb)
	codec := jwt.NewCodec(cfg)
	h, err := hasher.New(cfg.Hasher)
	require.NoError(t, err)
	box := &outbox{sent: map[string]string{}}

	svc := service.New(users, tokens, codec, h, box, cfg, zap.NewNop())
	g := gate.New(codec, users, tokens, h)
	handler := authhttp.NewHandler(svc, g, validation.New(), nil, zap.NewNop())

	return &env{t: t, router: authhttp.NewRouter(handler, g, opts, zap.NewNop()), outbox: box}
}

func (e *env) do(method, path string, body any, bearer string) (int, map[string]any) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func tokensOf(t *testing.T, body map[string]any) (access, refresh string) {
	t.Helper()
	result, ok := body["result"].(map[string]any)
	require.True(t, ok, body)
	access, _ = result["access_token"].(string)
	refresh, _ = result["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func fieldErrors(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	require.Equal(t, model.MsgValidationError, body["message"])
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok, body)
	return errs
}

func registerBody() map[string]any {
	return map[string]any{
		"name":             "Alice",
		"email":            email,
		"password":         password,
		"confirm_password": password,
		"date_of_birth":    "1990-01-01T00:00:00.000Z",
	}
}

func (e *env) register() (access, refresh string) {
	e.t.Helper()
	code, body := e.do(http.MethodPost, "/users/register", registerBody(), "")
	require.Equal(e.t, http.StatusOK, code, body)
	require.Equal(e.t, model.MsgRegisterSuccess, body["message"])
	return tokensOf(e.t, body)
}

/* ──────────────────────────────── tests ──────────────────────────────── */

func TestRegisterAndGetMe(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	access, _ := e.register()

	code, body := e.do(http.MethodGet, "/users/me", nil, access)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgGetMeSuccess, body["message"])

	user := body["result"].(map[string]any)
	require.Equal(t, email, user["email"])
	require.Equal(t, "Alice", user["name"])
	require.EqualValues(t, model.Unverified, user["verify"])
	for _, hidden := range []string{"password", "password_digest", "email_verify_token", "forgot_password_token"} {
		require.NotContains(t, user, hidden)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})

	code, body := e.do(http.MethodPost, "/users/register", map[string]any{
		"email":            "nope",
		"password":         "weakpassword",
		"confirm_password": "different",
		"date_of_birth":    "yesterday",
	}, "")
	require.Equal(t, http.StatusUnprocessableEntity, code)

	errs := fieldErrors(t, body)
	require.Equal(t, model.MsgNameRequired, errs["name"])
	require.Equal(t, model.MsgEmailInvalid, errs["email"])
	require.Equal(t, model.MsgPasswordStrong, errs["password"])
	require.Equal(t, model.MsgDateOfBirthISO8601, errs["date_of_birth"])
	require.Contains(t, errs, "confirm_password")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	e.register()

	code, body := e.do(http.MethodPost, "/users/register", registerBody(), "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, model.MsgEmailAlreadyExists, fieldErrors(t, body)["email"])
}

func TestRegister_MalformedBody(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/users/register", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	e.register()

	code, body := e.do(http.MethodPost, "/users/login", map[string]any{"email": email, "password": "Wr0ngpass!"}, "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, model.MsgEmailOrPasswordIncorrect, fieldErrors(t, body)["email"])

	code, body = e.do(http.MethodPost, "/users/login", map[string]any{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgLoginSuccess, body["message"])
	tokensOf(t, body)
}

func TestRefreshTokenRotation(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	_, refresh := e.register()

	code, body := e.do(http.MethodPost, "/users/refresh-token", map[string]any{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgRefreshTokenSuccess, body["message"])
	_, next := tokensOf(t, body)
	require.NotEqual(t, refresh, next)

	code, body = e.do(http.MethodPost, "/users/refresh-token", map[string]any{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, model.MsgRefreshTokenUsedOrNotExist, body["message"])
}

func TestRefreshToken_Missing(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})

	code, body := e.do(http.MethodPost, "/users/refresh-token", map[string]any{}, "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, model.MsgRefreshTokenRequired, fieldErrors(t, body)["refresh_token"])

	code, body = e.do(http.MethodPost, "/users/refresh-token", map[string]any{"refresh_token": "garbage"}, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Token is malformed", body["message"])
}

func TestLogout(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	access, refresh := e.register()

	code, body := e.do(http.MethodPost, "/users/logout", map[string]any{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, model.MsgAccessTokenRequired, body["message"])

	code, body = e.do(http.MethodPost, "/users/logout", map[string]any{"refresh_token": refresh}, access)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgLogoutSuccess, body["message"])

	code, body = e.do(http.MethodPost, "/users/logout", map[string]any{"refresh_token": refresh}, access)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, model.MsgRefreshTokenUsedOrNotExist, body["message"])
}

func TestVerifyEmail(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	access, _ := e.register()
	token := e.outbox.last(model.PurposeEmailVerify, email)
	require.NotEmpty(t, token)

	code, body := e.do(http.MethodPost, "/users/verify-email", map[string]any{}, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, model.MsgEmailVerifyTokenRequired, body["message"])

	code, body = e.do(http.MethodPost, "/users/verify-email", map[string]any{"email_verify_token": token}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgEmailVerifySuccess, body["message"])
	tokensOf(t, body)

	code, body = e.do(http.MethodPost, "/users/verify-email", map[string]any{"email_verify_token": token}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgEmailAlreadyVerified, body["message"])

	code, body = e.do(http.MethodPost, "/users/resend-verify-email", nil, access)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgEmailAlreadyVerified, body["message"])
}

func TestResendVerifyEmail_ReplacesToken(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	access, _ := e.register()
	first := e.outbox.last(model.PurposeEmailVerify, email)

	// tokens signed within the same second still differ by jti
	code, body := e.do(http.MethodPost, "/users/resend-verify-email", nil, access)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgResendEmailVerifySuccess, body["message"])
	second := e.outbox.last(model.PurposeEmailVerify, email)
	require.NotEqual(t, first, second)

	code, body = e.do(http.MethodPost, "/users/verify-email", map[string]any{"email_verify_token": first}, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, model.MsgEmailVerifyTokenMismatch, body["message"])

	code, _ = e.do(http.MethodPost, "/users/verify-email", map[string]any{"email_verify_token": second}, "")
	require.Equal(t, http.StatusOK, code)
}

func TestForgotAndResetPassword(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	e.register()

	code, body := e.do(http.MethodPost, "/users/forgot-password", map[string]any{"email": "ghost@example.com"}, "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, model.MsgUserNotFound, body["message"])

	code, body = e.do(http.MethodPost, "/users/forgot-password", map[string]any{"email": email}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgCheckEmailToResetPassword, body["message"])
	token := e.outbox.last(model.PurposeForgotPassword, email)
	require.NotEmpty(t, token)

	code, body = e.do(http.MethodPost, "/users/verify-forgot-password", map[string]any{"forgot_password_token": token}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgVerifyForgotPasswordSuccess, body["message"])

	const newPassword = "N3wPassw0rd!"
	reset := map[string]any{
		"forgot_password_token": token,
		"password":              newPassword,
		"confirm_password":      "Mismatch1!",
	}
	code, body = e.do(http.MethodPost, "/users/reset-password", reset, "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, model.MsgConfirmPasswordSame, fieldErrors(t, body)["confirm_password"])

	reset["confirm_password"] = newPassword
	code, body = e.do(http.MethodPost, "/users/reset-password", reset, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgResetPasswordSuccess, body["message"])

	code, body = e.do(http.MethodPost, "/users/reset-password", reset, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, model.MsgForgotPasswordTokenMismatch, body["message"])

	code, _ = e.do(http.MethodPost, "/users/login", map[string]any{"email": email, "password": password}, "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = e.do(http.MethodPost, "/users/login", map[string]any{"email": email, "password": newPassword}, "")
	require.Equal(t, http.StatusOK, code)
}

func TestGetMe_BadAccessToken(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	_, refresh := e.register()

	code, body := e.do(http.MethodGet, "/users/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, model.MsgAccessTokenRequired, body["message"])

	code, body = e.do(http.MethodGet, "/users/me", nil, refresh)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Token signature is invalid", body["message"])
}

func TestRateLimit(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{Visitors: ratelimit.NewVisitors(1, 1, 10, time.Hour)})

	code, _ := e.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, code)
	code, body := e.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, "Too many requests", body["message"])
}

func TestCORSPreflight(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{AllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/users/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyTokens_SurroundingWhitespaceIgnored(t *testing.T) {
	e := newEnv(t, authhttp.RouterOptions{})
	access, refresh := e.register()
	pad := func(s string) string { return " \t" + s + "\n " }

	verify := e.outbox.last(model.PurposeEmailVerify, email)
	code, body := e.do(http.MethodPost, "/users/verify-email", map[string]any{"email_verify_token": pad(verify)}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgEmailVerifySuccess, body["message"])

	code, body = e.do(http.MethodPost, "/users/refresh-token", map[string]any{"refresh_token": pad(refresh)}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgRefreshTokenSuccess, body["message"])
	_, refresh = tokensOf(t, body)

	code, body = e.do(http.MethodPost, "/users/logout", map[string]any{"refresh_token": pad(refresh)}, access)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgLogoutSuccess, body["message"])

	code, body = e.do(http.MethodPost, "/users/refresh-token", map[string]any{"refresh_token": "   "}, "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, model.MsgRefreshTokenRequired, fieldErrors(t, body)["refresh_token"])

	code, body = e.do(http.MethodPost, "/users/forgot-password", map[string]any{"email": email}, "")
	require.Equal(t, http.StatusOK, code, body)
	forgot := e.outbox.last(model.PurposeForgotPassword, email)

	code, body = e.do(http.MethodPost, "/users/verify-forgot-password", map[string]any{"forgot_password_token": pad(forgot)}, "")
	require.Equal(t, http.StatusOK, code, body)

	const newPassword = "N3wPassw0rd!"
	code, body = e.do(http.MethodPost, "/users/reset-password", map[string]any{
		"forgot_password_token": pad(forgot),
		"password":              newPassword,
		"confirm_password":      newPassword,
	}, "")
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, model.MsgResetPasswordSuccess, body["message"])
}
