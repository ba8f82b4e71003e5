package notify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/midori/internal/model"
)

func sunflower() model.Plant {
	return model.Plant{ID: "12", CommonName: "Sunflower", ScientificName: "Helianthus annuus"}
}

func TestService_FavoriteAdded_IssuesNotification(t *testing.T) {
	service := NewService(20)

	n := service.FavoriteAdded(sunflower())

	if n.ID == "" {
		t.Error("expected non-empty notification ID")
	}
	if n.Type != model.NotificationTypeFavoritePlant {
		t.Errorf("Type = %q, want %q", n.Type, model.NotificationTypeFavoritePlant)
	}
	if n.Body != "Sunflower" {
		t.Errorf("Body = %q, want %q", n.Body, "Sunflower")
	}
	if n.PlantID != "12" {
		t.Errorf("PlantID = %q, want %q", n.PlantID, "12")
	}
	if n.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestService_WeatherPick_UsesScientificNameWhenNoCommonName(t *testing.T) {
	service := NewService(20)

	n := service.WeatherPick(model.Plant{ID: "34", ScientificName: "Lavandula"})

	if n.Type != model.NotificationTypeWeatherPlant {
		t.Errorf("Type = %q, want %q", n.Type, model.NotificationTypeWeatherPlant)
	}
	if n.Body != "Lavandula" {
		t.Errorf("Body = %q, want %q", n.Body, "Lavandula")
	}
}

func TestService_List_NewestFirst(t *testing.T) {
	service := NewService(20)

	first := service.FavoriteAdded(model.Plant{ID: "1", CommonName: "First"})
	second := service.WeatherPick(model.Plant{ID: "2", CommonName: "Second"})

	list := service.List()
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].ID != second.ID {
		t.Errorf("list[0].ID = %q, want newest %q", list[0].ID, second.ID)
	}
	if list[1].ID != first.ID {
		t.Errorf("list[1].ID = %q, want oldest %q", list[1].ID, first.ID)
	}
}

func TestService_Push_EvictsOldestBeyondLimit(t *testing.T) {
	service := NewService(3)

	for i := 1; i <= 5; i++ {
		service.FavoriteAdded(model.Plant{
			ID:         model.PlantID(fmt.Sprintf("%d", i)),
			CommonName: fmt.Sprintf("Plant %d", i),
		})
	}

	list := service.List()
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	// 新しい3件（5, 4, 3）だけが残る
	if list[0].PlantID != "5" || list[2].PlantID != "3" {
		t.Errorf("retained plants = [%s, %s, %s], want [5, 4, 3]",
			list[0].PlantID, list[1].PlantID, list[2].PlantID)
	}
}

func TestService_Target_ReturnsPlantDetailNavigation(t *testing.T) {
	service := NewService(20)
	n := service.FavoriteAdded(sunflower())

	target, err := service.Target(n.ID)
	if err != nil {
		t.Fatalf("Target returned error: %v", err)
	}

	if target.Screen != "plant_detail" {
		t.Errorf("Screen = %q, want %q", target.Screen, "plant_detail")
	}
	if target.PlantID != "12" {
		t.Errorf("PlantID = %q, want %q", target.PlantID, "12")
	}
	if target.CommonName != "Sunflower" {
		t.Errorf("CommonName = %q, want %q", target.CommonName, "Sunflower")
	}
}

func TestService_Target_UnknownID_ReturnsNotFound(t *testing.T) {
	service := NewService(20)

	_, err := service.Target("unknown-id")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotificationNotFound {
		t.Errorf("expected NOTIFICATION_NOT_FOUND error, got %v", err)
	}
}

func TestService_Clear_RemovesAllNotifications(t *testing.T) {
	service := NewService(20)
	n := service.FavoriteAdded(sunflower())

	service.Clear()

	if len(service.List()) != 0 {
		t.Errorf("expected empty list after Clear, got %d items", len(service.List()))
	}
	if _, err := service.Target(n.ID); err == nil {
		t.Error("expected Target to fail after Clear")
	}
}

func TestNewService_NonPositiveLimit_UsesDefault(t *testing.T) {
	service := NewService(0)

	for i := 0; i < 25; i++ {
		service.FavoriteAdded(model.Plant{ID: model.PlantID(fmt.Sprintf("%d", i)), CommonName: "x"})
	}

	if got := len(service.List()); got != 20 {
		t.Errorf("len(list) = %d, want default limit 20", got)
	}
}
