package pagination

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type row struct {
	ID    int
	Owner string
}

func TestDefaults(t *testing.T) {
	tests := []struct {
		in   PageRequest
		want PageRequest
	}{
		{PageRequest{}, PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{PageRequest{Page: 3, PageSize: 5}, PageRequest{Page: 3, PageSize: 5}},
		{PageRequest{Page: -1, PageSize: 500}, PageRequest{Page: 1, PageSize: MaxPageSize}},
	}
	for _, tt := range tests {
		got := tt.in
		got.Defaults()
		if got != tt.want {
			t.Errorf("Defaults(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[int](nil, 1, 20, 41)
	if resp.Data == nil || len(resp.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %#v", resp.Data)
	}
	if resp.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.TotalPages)
	}
}

func TestList(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:pagination?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	for i := 1; i <= 7; i++ {
		owner := "a"
		if i%2 == 0 {
			owner = "b"
		}
		db.Create(&row{ID: i, Owner: owner})
	}

	query := db.Model(&row{}).Where("owner = ?", "a")
	page, err := List[row](query, PageRequest{Page: 2, PageSize: 3}, "id DESC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalItems != 4 || page.TotalPages != 2 {
		t.Errorf("expected 4 items over 2 pages, got %d over %d", page.TotalItems, page.TotalPages)
	}
	if got := fmt.Sprint(page.Data); got != "[{1 a}]" {
		t.Errorf("unexpected second page %s", got)
	}

	// The query can be reused; List must not leak its ORDER or LIMIT into it.
	var count int64
	query.Count(&count)
	if count != 4 {
		t.Errorf("expected base query to still match 4 rows, got %d", count)
	}
}
