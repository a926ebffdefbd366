// Package auth はOAuth認証フロー、セッション管理、プロファイル同期を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/feedmatters/internal/directory"
	"github.com/hitoshi/feedmatters/internal/model"
	"github.com/hitoshi/feedmatters/internal/repository"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、Identityを取得する。
	ExchangeCode(ctx context.Context, code string) (*model.Identity, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	sessionRepo repository.SessionRepository
	dir         directory.Directory
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	sessionRepo repository.SessionRepository,
	dir directory.Directory,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		sessionRepo: sessionRepo,
		dir:         dir,
		config:      config,
		now:         time.Now,
	}
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// サインインのたびにディレクトリのユーザープロファイルを同期する。
// プロファイル同期の失敗はサインインを妨げない（ログのみ）。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換し、Identityを取得
	identity, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. ディレクトリのユーザープロファイルを同期
	if err := s.syncProfile(ctx, identity); err != nil {
		slog.Warn("failed to sync user profile",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	// 3. セッションを発行
	session, err := s.createSession(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user signed in",
		slog.String("user_id", identity.ID),
		slog.String("email", identity.Email),
	)

	return session, nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// syncProfile はディレクトリのusersコレクションにプロファイルを書き込む。
// 初回サインインの場合はcreatedAtとisNewUserを含む完全なドキュメントを作成し、
// 2回目以降はマージ書き込みで既存フィールドを保持したまま更新する。
func (s *Service) syncProfile(ctx context.Context, identity *model.Identity) error {
	profile := directory.Document{
		"uid":           identity.ID,
		"email":         identity.Email,
		"displayName":   identity.DisplayName,
		"photoURL":      identity.PhotoURL,
		"emailVerified": identity.EmailVerified,
		"lastSignIn":    directory.ServerTimestamp,
		"updatedAt":     directory.ServerTimestamp,
	}

	_, err := s.dir.Read(ctx, directory.CollectionUsers, identity.ID)
	if errors.Is(err, directory.ErrNotFound) {
		profile["createdAt"] = directory.ServerTimestamp
		profile["isNewUser"] = true
	} else if err != nil {
		return fmt.Errorf("failed to read user profile: %w", err)
	}

	if err := s.dir.UpsertMerge(ctx, directory.CollectionUsers, identity.ID, profile); err != nil {
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}

	return nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentIdentity はセッションから現在のIdentityを取得する。
// セッションが存在しないか期限切れの場合はnilを返す。
func (s *Service) GetCurrentIdentity(ctx context.Context, sessionID string) (*model.Identity, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	identity := session.Identity
	return &identity, nil
}

// createSession はIdentityのスナップショットを含むセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, identity *model.Identity) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		Identity:  *identity,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
