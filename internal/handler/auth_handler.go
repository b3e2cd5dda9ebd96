// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/soo/honeyboard/internal/metrics"
	"github.com/soo/honeyboard/internal/middleware"
	"github.com/soo/honeyboard/internal/model"
)

// メトリクスのproviderラベル値。
const providerKakao = "kakao"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// GetLoginURL はKakao認可画面のURLを返す。
	GetLoginURL(state string) string
	// Login は認可コードからログイン処理を実行し、セッショントークンとユーザーを返す。
	Login(ctx context.Context, code string) (*model.LoginResult, error)
}

// AuthHandler はソーシャルログインのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics metrics.MetricsCollector // nilの場合は記録しない
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: collector,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Code string `json:"code"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// LoginURL はKakao認可画面のURLを返す。
// GET /auth/kakao/login-url
func (h *AuthHandler) LoginURL(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"login_url": h.service.GetLoginURL(state),
	})
}

// Login は認可コードを受け取りログイン処理を実行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.Code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("認可コードが空です"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Code)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLoginFailure(providerKakao, loginFailureReason(err))
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess(providerKakao)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

// loginFailureReason はメトリクスのreasonラベル値を決める。
// トークン等の秘匿値を含まない固定値のみを使う。
func loginFailureReason(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeExternalAuth {
		return "external_auth"
	}
	return "internal"
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
