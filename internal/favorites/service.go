// Package favorites はアカウントごとのお気に入り植物の同期を提供する。
// 状態の正本はリモートドキュメントストアにあり、本パッケージは
// 認証状態に追従するメモリ上のミラーを保持する。
package favorites

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/midori/internal/model"
)

// Store はお気に入り記録の永続化先インターフェース。
type Store interface {
	// ListFavorites はユーザーのお気に入りを全件取得する。
	ListFavorites(ctx context.Context, idToken, uid string) ([]model.FavoriteRecord, error)
	// SetFavorite はお気に入り記録を保存する。同一IDへの保存は上書きとなる。
	SetFavorite(ctx context.Context, idToken, uid string, record model.FavoriteRecord) error
	// DeleteFavorite はお気に入り記録を削除する。
	DeleteFavorite(ctx context.Context, idToken, uid string, plantID model.PlantID) error
}

// AuthSource は認証状態の購読とIDトークンの取得を提供するインターフェース。
type AuthSource interface {
	// Subscribe は認証状態変化の購読を開始し、解除関数を返す。
	Subscribe(fn func(*model.User)) func()
	// Token は現在のセッションのIDトークンを返す。
	Token() (string, error)
}

// Service はお気に入りの同期状態を管理する。
//
// サインイン時はストアからの取得が完了するまでお気に入りは空として扱われ、
// 取得結果は世代番号が一致する場合のみ反映される。取得中にサインアウトが
// 起きた場合、古い取得結果は破棄される。
// サインアウト時のクリアは認証通知の中で同期的に行われる。
type Service struct {
	store Store
	auth  AuthSource

	fetchTimeout time.Duration

	mu          sync.Mutex
	user        *model.User
	records     map[model.PlantID]model.FavoriteRecord
	generation  uint64
	unsubscribe func()
}

// NewService はServiceを生成する。
func NewService(store Store, auth AuthSource) *Service {
	return &Service{
		store:        store,
		auth:         auth,
		fetchTimeout: 10 * time.Second,
		records:      make(map[model.PlantID]model.FavoriteRecord),
	}
}

// Start は認証状態の購読を開始する。購読開始時点でサインイン済みの場合は
// そのユーザーのお気に入り取得が開始される。
func (s *Service) Start() {
	s.unsubscribe = s.auth.Subscribe(s.handleAuthChange)
}

// Close は認証状態の購読を解除する。
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// handleAuthChange は認証状態の変化に追従する。
// サインアウト（nilユーザー）の場合はこの呼び出しの中で同期的にクリアする。
// サインインの場合はストアからの取得を非同期に開始し、取得完了時に
// 世代番号が進んでいなければ結果を反映する。
func (s *Service) handleAuthChange(user *model.User) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.user = user
	s.records = make(map[model.PlantID]model.FavoriteRecord)
	s.mu.Unlock()

	if user == nil {
		return
	}

	go s.fetch(gen, user.UID)
}

// fetch はストアからお気に入りを取得し、世代が一致する場合のみ反映する。
// 取得失敗時は空のまま運用を続ける（書き込み時のエラーとは異なり伝播しない）。
func (s *Service) fetch(gen uint64, uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	token, err := s.auth.Token()
	if err != nil {
		slog.Warn("お気に入り取得をスキップしました（セッションなし）",
			slog.String("user_id", uid),
		)
		return
	}

	records, err := s.store.ListFavorites(ctx, token, uid)
	if err != nil {
		slog.Error("お気に入りの取得に失敗しました",
			slog.String("user_id", uid),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 取得中にサインアウトや再サインインが起きていた場合は結果を破棄する
	if s.generation != gen {
		slog.Info("古い世代のお気に入り取得結果を破棄しました",
			slog.String("user_id", uid),
		)
		return
	}

	for _, record := range records {
		id := canonicalID(record.PlantID)
		if id == "" {
			continue
		}
		record.PlantID = id
		s.records[id] = record
	}

	slog.Info("お気に入りを同期しました",
		slog.String("user_id", uid),
		slog.Int("favorites_count", len(s.records)),
	)
}

// Toggle はお気に入りの追加/削除を切り替える。追加された場合はtrueを返す。
// ストアへの書き込みが成功してからメモリ上の状態を更新するため、
// 書き込み失敗時はトグル前の状態が維持される。
func (s *Service) Toggle(ctx context.Context, plant model.Plant) (bool, error) {
	id := canonicalID(plant.ID)
	if id == "" {
		return false, model.NewInvalidPlantError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return false, model.NewUnauthenticatedError()
	}

	token, err := s.auth.Token()
	if err != nil {
		return false, model.NewUnauthenticatedError()
	}
	uid := s.user.UID

	if _, ok := s.records[id]; ok {
		if err := s.store.DeleteFavorite(ctx, token, uid, id); err != nil {
			slog.Error("お気に入りの削除に失敗しました",
				slog.String("user_id", uid),
				slog.String("plant_id", string(id)),
				slog.String("error", err.Error()),
			)
			return false, model.NewStoreAccessError("remove")
		}
		delete(s.records, id)

		slog.Info("お気に入りを削除しました",
			slog.String("user_id", uid),
			slog.String("plant_id", string(id)),
			slog.Int("favorites_count", len(s.records)),
		)
		return false, nil
	}

	record := model.FavoriteRecord{
		PlantID:        id,
		CommonName:     plant.CommonName,
		ScientificName: plant.ScientificName,
		ImageURL:       plant.ImageURL,
	}
	if err := s.store.SetFavorite(ctx, token, uid, record); err != nil {
		slog.Error("お気に入りの追加に失敗しました",
			slog.String("user_id", uid),
			slog.String("plant_id", string(id)),
			slog.String("error", err.Error()),
		)
		return false, model.NewStoreAccessError("add")
	}
	s.records[id] = record

	slog.Info("お気に入りを追加しました",
		slog.String("user_id", uid),
		slog.String("plant_id", string(id)),
		slog.Int("favorites_count", len(s.records)),
	)
	return true, nil
}

// IsFavorite は指定した植物がお気に入りかどうかを返す。
// 未サインインの場合は常にfalseを返す。
func (s *Service) IsFavorite(plantID model.PlantID) bool {
	id := canonicalID(plantID)
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[id]
	return ok
}

// Get は指定した植物のお気に入り記録を返す。存在しない場合はnilを返す。
func (s *Service) Get(plantID model.PlantID) *model.FavoriteRecord {
	id := canonicalID(plantID)
	if id == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[id]; ok {
		return &record
	}
	return nil
}

// List は現在のお気に入り一覧を植物ID順で返す。
func (s *Service) List() []model.FavoriteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]model.FavoriteRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].PlantID < records[j].PlantID
	})
	return records
}

// Count は現在のお気に入り件数を返す。
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// canonicalID は植物IDを正規化する。空白のみのIDは無効として空を返す。
func canonicalID(id model.PlantID) model.PlantID {
	return model.PlantID(strings.TrimSpace(string(id)))
}
