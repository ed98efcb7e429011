package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fleurfold/fleur/internal/plan"
)

func TestRootRejectsExtraArgs(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"p", "q"})
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	if err := root.Execute(); err == nil {
		t.Error("Expected error for two positional arguments")
	}
}

func TestPlanCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"unknown format", []string{"plan", "--format", "csv"}, true},
		{"parquet needs output", []string{"plan", "--format", "parquet"}, true},
		{"parquet to file", []string{"plan", "--format", "parquet", "--output", "plan.parquet"}, false},
		{"yaml to file", []string{"plan", "--format", "yaml", "--output", "plan.yaml"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			args := append([]string(nil), tt.args...)
			for i, a := range args {
				if strings.HasPrefix(a, "plan.") {
					args[i] = filepath.Join(dir, a)
				}
			}

			root := NewRootCmd()
			root.SetArgs(args)
			root.SetOut(&strings.Builder{})
			root.SetErr(&strings.Builder{})
			err := root.Execute()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %t, got %v", tt.wantErr, err)
			}
			if tt.wantErr {
				return
			}
			if _, err := os.Stat(args[len(args)-1]); err != nil {
				t.Errorf("Expected plan file: %v", err)
			}
		})
	}
}

func TestPlanCommandParquetRows(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plan.parquet")
	root := NewRootCmd()
	root.SetArgs([]string{"plan", "--format", "parquet", "--output", out})
	if err := root.Execute(); err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	rows, err := plan.ReadParquet(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 46 {
		t.Errorf("Expected 46 rows, got %d", len(rows))
	}
}
