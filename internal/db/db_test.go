package db

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm/logger"

	"horse.fit/newsalert/internal/globaltime"
	"horse.fit/newsalert/internal/news"
)

func TestAlertRecordFromNews(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(now)
	t.Cleanup(globaltime.ResetTime)

	published := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 2*3600))
	rec := alertRecordFromNews(news.Alert{
		ID:        "6f1c1b7e-8f0a-4c1e-9d7e-2d1c8f8b1a00",
		Title:     "ירי רקטות, לעבר אשקלון!",
		Location:  "אשקלון",
		Timestamp: published,
		Link:      "https://news.example/1",
		ImageURL:  "  ",
		Language:  "he",
	})

	if rec.NormalizedTitle != "ירי רקטות לעבר אשקלון" {
		t.Fatalf("unexpected normalized title: %q", rec.NormalizedTitle)
	}
	if !rec.PublishedAt.Equal(published) || rec.PublishedAt.Location() != time.UTC {
		t.Fatalf("expected published_at in UTC, got %s", rec.PublishedAt)
	}
	if rec.ImageURL != nil {
		t.Fatalf("expected blank image url to be stored as NULL")
	}
	if rec.Language == nil || *rec.Language != "he" {
		t.Fatalf("unexpected language: %v", rec.Language)
	}
	if !rec.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at from clock, got %s", rec.CreatedAt)
	}
}

func TestTitleKeyUsesFeedHeadline(t *testing.T) {
	t.Parallel()

	alert := news.Alert{
		Title:     "Rockets hit Ashkelon",
		FeedTitle: "Rocket barrage fired toward Ashkelon industrial zone, this morning",
		Link:      "https://news.example/2",
	}
	want := "rocket barrage fired toward ashkelon industrial zone this morning"
	if got := TitleKey(alert); got != want {
		t.Fatalf("TitleKey = %q, want %q", got, want)
	}
	if rec := alertRecordFromNews(alert); rec.NormalizedTitle != want || rec.Title != "Rockets hit Ashkelon" {
		t.Fatalf("unexpected record titles: %q / %q", rec.Title, rec.NormalizedTitle)
	}

	alert.FeedTitle = " "
	if got := TitleKey(alert); got != "rockets hit ashkelon" {
		t.Fatalf("expected fallback to display title, got %q", got)
	}
}

func TestUninitializedPoolFailsFast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var pool *Pool
	if err := pool.Ping(ctx); err == nil {
		t.Fatalf("expected ping error on nil pool")
	}
	if _, err := pool.Exec(ctx, "SELECT 1"); err == nil {
		t.Fatalf("expected exec error on nil pool")
	}
	if _, err := pool.Query(ctx, "SELECT 1"); err == nil {
		t.Fatalf("expected query error on nil pool")
	}
	called := false
	if err := pool.WithTx(ctx, func(Tx) error { called = true; return nil }); err == nil || called {
		t.Fatalf("expected WithTx to fail before running fn, err=%v called=%v", err, called)
	}
	if _, err := pool.InsertAlerts(ctx, []news.Alert{{Link: "https://news.example/1"}}); err == nil {
		t.Fatalf("expected insert error on nil pool")
	}
	if inserted, err := pool.InsertAlerts(ctx, nil); err != nil || inserted != nil {
		t.Fatalf("expected empty insert to be a no-op, got %v %v", inserted, err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("expected nil pool close to succeed, got %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements(preAutoMigrateSQL + "\n;\n" + postAutoMigrateSQL)
	if len(got) != 5 {
		t.Fatalf("expected 5 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE SCHEMA IF NOT EXISTS newsalert" {
		t.Fatalf("unexpected first statement: %q", got[0])
	}
}

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]logger.LogLevel{
		"debug":  logger.Info,
		"info":   logger.Warn,
		"error":  logger.Error,
		"silent": logger.Silent,
	}
	for level, want := range cases {
		if got := resolveGormLogLevel(level, "production"); got != want {
			t.Fatalf("resolveGormLogLevel(%q) = %v, want %v", level, got, want)
		}
	}
}

func TestModelsTableNames(t *testing.T) {
	t.Parallel()

	if (AlertRecord{}).TableName() != "newsalert.alerts" ||
		(UserProfile{}).TableName() != "newsalert.user_profiles" ||
		(NotificationRecord{}).TableName() != "newsalert.notifications" {
		t.Fatalf("unexpected table names")
	}
	if len(autoMigrateModels()) != 3 {
		t.Fatalf("expected three migrated models")
	}
}
