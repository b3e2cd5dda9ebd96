package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soo/honeyboard/internal/model"
)

const (
	defaultKakaoAuthURL     = "https://kauth.kakao.com/oauth/authorize"
	defaultKakaoTokenURL    = "https://kauth.kakao.com/oauth/token"
	defaultKakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

	defaultKakaoTimeout = 10 * time.Second
)

// KakaoOAuthConfig はKakao OAuthプロバイダーの設定。
type KakaoOAuthConfig struct {
	ClientID     string
	ClientSecret string // Kakaoではオプション（管理画面で有効化した場合のみ必要）
	RedirectURL  string

	// 外部呼び出しのタイムアウト。ゼロ値の場合はデフォルトを使用する。
	Timeout time.Duration

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// KakaoOAuthProvider はKakao OAuth 2.0による認証を提供する。
type KakaoOAuthProvider struct {
	config KakaoOAuthConfig
	client *http.Client
}

// NewKakaoOAuthProvider はKakaoOAuthProviderを生成する。
func NewKakaoOAuthProvider(config KakaoOAuthConfig) *KakaoOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultKakaoAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultKakaoTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultKakaoUserInfoURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultKakaoTimeout
	}
	return &KakaoOAuthProvider{
		config: config,
		// タイムアウト超過もExternalAuthエラーとして呼び出し元へ伝播する
		client: &http.Client{Timeout: config.Timeout},
	}
}

// GetLoginURL はKakao OAuthの認証URLを生成する。
func (p *KakaoOAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// kakaoTokenResponse はKakaoのトークンエンドポイントのレスポンス。
type kakaoTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// kakaoUserInfo はKakaoのユーザー情報エンドポイントのレスポンス。
// provider_user_idに相当するidは数値で返る。
type kakaoUserInfo struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Profile struct {
			Nickname          string `json:"nickname"`
			ThumbnailImageURL string `json:"thumbnail_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
// 認可コードは使い捨てのため、失敗時に内部でのリトライは行わない。
func (p *KakaoOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	// 1. 認可コードをアクセストークンに交換
	tokenResp, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}

	// 2. アクセストークンでユーザー情報を取得
	userInfo, err := p.fetchUserInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, err
	}

	return &OAuthUserInfo{
		ProviderUserID: fmt.Sprintf("%d", userInfo.ID),
		Nickname:       userInfo.KakaoAccount.Profile.Nickname,
		AvatarURL:      userInfo.KakaoAccount.Profile.ThumbnailImageURL,
		Provider:       "kakao",
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
// トークン値はエラーメッセージやログに含めない。
func (p *KakaoOAuthProvider) exchangeToken(ctx context.Context, code string) (*kakaoTokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {p.config.ClientID},
		"redirect_uri": {p.config.RedirectURL},
		"code":         {code},
	}
	if p.config.ClientSecret != "" {
		data.Set("client_secret", p.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, model.NewExternalAuthError("failed to create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, model.NewExternalAuthError("token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewExternalAuthError("failed to read token response")
	}

	if resp.StatusCode != http.StatusOK {
		// 期限切れ・使用済み・不正なコードはここに到達する
		return nil, model.NewExternalAuthError(fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	var tokenResp kakaoTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, model.NewExternalAuthError("failed to parse token response")
	}

	if tokenResp.AccessToken == "" {
		return nil, model.NewExternalAuthError("empty access token in response")
	}

	return &tokenResp, nil
}

// fetchUserInfo はアクセストークンでKakaoのユーザー情報を取得する。
// 必須フィールド（id、nickname）が欠けている場合は部分データのまま進まずエラーを返す。
func (p *KakaoOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*kakaoUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, model.NewExternalAuthError("failed to create user info request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, model.NewExternalAuthError("user info request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewExternalAuthError("failed to read user info response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewExternalAuthError(fmt.Sprintf("user info endpoint returned status %d", resp.StatusCode))
	}

	var userInfo kakaoUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, model.NewExternalAuthError("failed to parse user info response")
	}

	if userInfo.ID == 0 {
		return nil, model.NewExternalAuthError("missing user id in user info response")
	}
	if userInfo.KakaoAccount.Profile.Nickname == "" {
		return nil, model.NewExternalAuthError("missing nickname in user info response")
	}

	return &userInfo, nil
}

// compile-time interface check
var _ OAuthProvider = (*KakaoOAuthProvider)(nil)
