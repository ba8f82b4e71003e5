// Package notify はアプリ内通知の発行と保持を提供する。
// 通知はメモリ上に件数上限付きで保持され、サインアウト時に破棄される。
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/midori/internal/model"
)

// Service はアプリ内通知を管理する。通知一覧は新しい順に保持される。
type Service struct {
	limit int

	mu    sync.Mutex
	items []model.Notification
}

// NewService はServiceを生成する。limitは保持する通知の最大件数。
func NewService(limit int) *Service {
	if limit <= 0 {
		limit = 20
	}
	return &Service{limit: limit}
}

// FavoriteAdded はお気に入り追加の通知を発行する。
func (s *Service) FavoriteAdded(plant model.Plant) model.Notification {
	return s.push(model.Notification{
		Type:    model.NotificationTypeFavoritePlant,
		Title:   "お気に入りに追加しました",
		Body:    plant.DisplayName(),
		PlantID: plant.ID,
	})
}

// WeatherPick は天候に合う植物のおすすめ通知を発行する。
func (s *Service) WeatherPick(plant model.Plant) model.Notification {
	return s.push(model.Notification{
		Type:    model.NotificationTypeWeatherPlant,
		Title:   "あなたの天気におすすめの植物",
		Body:    plant.DisplayName(),
		PlantID: plant.ID,
	})
}

// push は通知を先頭に追加する。上限を超えた分は古いものから破棄される。
func (s *Service) push(n model.Notification) model.Notification {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]model.Notification{n}, s.items...)
	if len(s.items) > s.limit {
		s.items = s.items[:s.limit]
	}

	slog.Info("notification issued",
		slog.String("notification_id", n.ID),
		slog.String("type", n.Type),
		slog.String("plant_id", string(n.PlantID)),
	)
	return n
}

// List は保持中の通知を新しい順で返す。
func (s *Service) List() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.Notification, len(s.items))
	copy(items, s.items)
	return items
}

// Target は通知タップ時の遷移先を返す。
// 通知が見つからない場合はNOTIFICATION_NOT_FOUNDエラーを返す。
func (s *Service) Target(id string) (*model.NotificationTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		if n.ID == id {
			return &model.NotificationTarget{
				Screen:     "plant_detail",
				PlantID:    n.PlantID,
				CommonName: n.Body,
			}, nil
		}
	}
	return nil, model.NewNotificationNotFoundError(id)
}

// Clear は保持中の通知を全て破棄する。サインアウト時に呼ばれる。
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}
