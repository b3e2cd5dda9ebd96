// Package auth はOAuth認証フロー、セッショントークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/soo/honeyboard/internal/model"
	"github.com/soo/honeyboard/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Nickname       string
	AvatarURL      string
	Provider       string // "kakao" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Kakao, Naver等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// CredentialIssuer はローカルユーザーに対するセッショントークンを発行する。
type CredentialIssuer interface {
	Issue(user *model.User) (string, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth     OAuthProvider
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	issuer    CredentialIssuer
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	issuer CredentialIssuer,
) *Service {
	return &Service{
		oauth:     oauth,
		userRepo:  userRepo,
		identRepo: identRepo,
		issuer:    issuer,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// Login は認可コードをローカルセッションに変換する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定してログインし、
// プロバイダー側のニックネーム・アバターでローカルの値を上書きすることはない。
func (s *Service) Login(ctx context.Context, code string) (*model.LoginResult, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var user *model.User

	if identity != nil {
		// 3a. 既存ユーザー: identityからローカルユーザーを取得
		user, err = s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %s referenced by identity not found", identity.UserID)
		}
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		// 3b. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
		user, err = s.registerUser(ctx, userInfo)
		if err != nil {
			return nil, err
		}
	}

	// 4. セッショントークンを発行
	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &model.LoginResult{User: user, Token: token}, nil
}

// registerUser は新規ユーザーとidentityを作成する。
// ユニーク制約違反（同一アカウントの並行初回ログイン）の場合は
// 先勝ちしたレコードを再取得して既存ユーザーとして扱う。
func (s *Service) registerUser(ctx context.Context, userInfo *OAuthUserInfo) (*model.User, error) {
	now := time.Now()

	newUser := &model.User{
		ID:        uuid.New().String(),
		Nickname:  userInfo.Nickname,
		AvatarURL: userInfo.AvatarURL,
		Role:      model.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity)
	if err == nil {
		slog.Info("new user created",
			slog.String("user_id", newUser.ID),
			slog.String("provider", userInfo.Provider),
		)
		return newUser, nil
	}

	if !errors.Is(err, repository.ErrDuplicateIdentity) {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	// レース: 別のリクエストが先にidentityを作成した。既存レコードを再取得する。
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-fetch identity after duplicate: %w", err)
	}
	if identity == nil {
		return nil, fmt.Errorf("identity disappeared after duplicate violation")
	}

	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user after duplicate: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s referenced by identity not found", identity.UserID)
	}

	slog.Info("concurrent first login resolved to existing user",
		slog.String("user_id", user.ID),
		slog.String("provider", userInfo.Provider),
	)
	return user, nil
}
