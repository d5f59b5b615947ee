package commentrepo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

func writeCorpus(t *testing.T, dir, season, typ, csv string) {
	t.Helper()
	path := filepath.Join(dir, season+"_"+typ+"_enhanced100.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
}

func TestRepository_GetAllAvailableComments(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "夏", "weather_comment",
		"weather_comment,weather_condition,temperature,count\n"+
			"今日は暑いです,晴れ,30,5\n"+
			"雨が降ります,雨,20,2\n")

	repo := New(dir, time.Minute)
	comments, err := repo.GetAllAvailableComments(model.CommentTypeWeather, 0)
	if err != nil {
		t.Fatalf("GetAllAvailableComments() error = %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("len(comments) = %d, want 2", len(comments))
	}
}

func TestRepository_SearchByWeather(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "夏", "weather_comment",
		"weather_comment,weather_condition,temperature,count\n"+
			"今日は暑いです,晴れ,30,5\n"+
			"雨が降ります,雨,20,2\n")

	repo := New(dir, time.Minute)
	comments, err := repo.SearchByWeather(model.CommentTypeWeather, "雨")
	if err != nil {
		t.Fatalf("SearchByWeather() error = %v", err)
	}
	if len(comments) != 1 || comments[0].CommentText != "雨が降ります" {
		t.Errorf("SearchByWeather() = %+v, want 1 match for 雨", comments)
	}
}

func TestRepository_MissingCorpusFile_IsNotFatal(t *testing.T) {
	dir := t.TempDir()
	repo := New(dir, time.Minute)
	comments, err := repo.GetAllAvailableComments(model.CommentTypeAdvice, 0)
	if err != nil {
		t.Fatalf("GetAllAvailableComments() error = %v, want nil (missing file is a warning)", err)
	}
	if len(comments) != 0 {
		t.Errorf("len(comments) = %d, want 0", len(comments))
	}
}

func TestIndex_RebuildsOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "夏_weather_comment_enhanced100.csv")
	os.WriteFile(path, []byte("weather_comment,weather_condition,temperature,count\n今日は暑い,晴れ,30,1\n"), 0o644)

	idx1, err := loadOrBuildIndex(path, model.CommentTypeWeather, "夏")
	if err != nil {
		t.Fatalf("loadOrBuildIndex() error = %v", err)
	}
	if len(idx1.AllComments) != 1 {
		t.Fatalf("len(AllComments) = %d, want 1", len(idx1.AllComments))
	}

	os.WriteFile(path, []byte("weather_comment,weather_condition,temperature,count\n今日は暑い,晴れ,30,1\n明日も暑い,晴れ,31,1\n"), 0o644)
	newHash, err := fileHash(path)
	if err != nil {
		t.Fatalf("fileHash() error = %v", err)
	}

	idx2, err := loadOrBuildIndex(path, model.CommentTypeWeather, "夏")
	if err != nil {
		t.Fatalf("loadOrBuildIndex() error = %v", err)
	}
	if idx2.Hash != newHash {
		t.Errorf("idx2.Hash = %x, want %x (post-rebuild hash must match source)", idx2.Hash, newHash)
	}
	if len(idx2.AllComments) != 2 {
		t.Errorf("len(AllComments) after rebuild = %d, want 2", len(idx2.AllComments))
	}
}
