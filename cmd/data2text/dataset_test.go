package main

import (
	"os"
	"path/filepath"
	"testing"
)

const testDataset = `{
  "words": ["lebron", "points", "22", "home"],
  "train": [
    {
      "records": [
        ["lebron", "points", "22", "home"],
        ["lebron", "points", "home", "home"]
      ],
      "plan": [0, 1],
      "text": ["lebron", "22", "points"],
      "copied": [false, true, false],
      "copy_indices": [0]
    }
  ],
  "valid": [],
  "test": []
}`

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(testDataset), 0644); err != nil {
		t.Fatal(err)
	}
	ds, err := LoadDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Vocab.Len() != 8 {
		t.Errorf("expected 8 words but got %d", ds.Vocab.Len())
	}
	if len(ds.Train) != 1 || len(ds.Valid) != 0 || len(ds.Test) != 0 {
		t.Fatalf("bad split sizes: %d/%d/%d", len(ds.Train), len(ds.Valid),
			len(ds.Test))
	}

	ex := ds.Train[0]
	if len(ex.Records) != 6 {
		t.Fatalf("expected 6 records but got %d", len(ex.Records))
	}
	if ex.Records[4].Entity != 4 || ex.Records[4].Value != 6 {
		t.Errorf("bad record conversion: %+v", ex.Records[4])
	}

	expectedPlan := []int{2, 4, 5, 3}
	if len(ex.Plan) != len(expectedPlan) {
		t.Fatalf("expected plan %v but got %v", expectedPlan, ex.Plan)
	}
	for i, p := range expectedPlan {
		if ex.Plan[i] != p {
			t.Fatalf("expected plan %v but got %v", expectedPlan, ex.Plan)
		}
	}

	expectedText := []int{2, 4, 6, 5, 3}
	if len(ex.Text) != len(expectedText) {
		t.Fatalf("expected text %v but got %v", expectedText, ex.Text)
	}
	for i, w := range expectedText {
		if ex.Text[i] != w {
			t.Fatalf("expected text %v but got %v", expectedText, ex.Text)
		}
	}
	if len(ex.Copied) != 5 || ex.Copied[0] || !ex.Copied[2] || ex.Copied[4] {
		t.Errorf("bad copy marks: %v", ex.Copied)
	}

	steps := ex.ContentSteps()
	if len(steps) != 2 || steps[0] != 4 || steps[1] != 5 {
		t.Errorf("bad content steps: %v", steps)
	}
}

func TestLoadDatasetBadPlan(t *testing.T) {
	bad := `{"words": ["a"], "train": [{"records": [["a","a","a","a"]],
	  "plan": [3], "text": ["a"], "copied": [false], "copy_indices": []}]}`
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDataset(path); err == nil {
		t.Error("expected an error")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hidden != 600 || cfg.LearningRate != 0.15 || cfg.Epochs != 25 {
		t.Errorf("bad defaults: %+v", cfg)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := "hidden: 32\nepochs: 2\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hidden != 32 || cfg.Epochs != 2 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.LearningRate != 0.15 {
		t.Errorf("unset fields should keep defaults: %+v", cfg)
	}
}
