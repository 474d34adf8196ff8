package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"unidiary/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"}, nil)
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"}, nil)
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name    string
		cfg     Config
		env     string
		want    string
		wantErr bool
	}{
		{"inline wins", Config{CredentialsJSON: `{"inline":true}`, CredentialsFile: path}, "", `{"inline":true}`, false},
		{"file", Config{CredentialsFile: path}, "", `{"type":"service_account"}`, false},
		{"application default env", Config{}, path, `{"type":"service_account"}`, false},
		{"missing file", Config{CredentialsFile: filepath.Join(dir, "nope.json")}, "", "", true},
		{"nothing configured", Config{}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", tt.env)
			got, err := readCredentials(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("readCredentials() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClient_UpsertExpenseRejectsBeforeCallingSheets(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Expenses"}
	valid := core.Expense{
		ID:                 "e1",
		Amount:             core.Money{Cents: 100},
		Category:           core.CategoryOffice,
		Date:               core.NewDate(2025, 3, 1),
		RecurrenceInterval: core.RecurrenceNone,
	}

	t.Run("missing id", func(t *testing.T) {
		e := valid
		e.ID = ""
		if _, err := c.UpsertExpense(context.Background(), e); err == nil {
			t.Fatal("expected error for expense without id")
		}
	})

	t.Run("invalid expense", func(t *testing.T) {
		e := valid
		e.Category = "snacks"
		_, err := c.UpsertExpense(context.Background(), e)
		if !errors.Is(err, core.ErrInvalidCategory) {
			t.Errorf("expected ErrInvalidCategory, got: %v", err)
		}
	})

	t.Run("service not initialized", func(t *testing.T) {
		_, err := c.UpsertExpense(context.Background(), valid)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Errorf("expected initialization error, got: %v", err)
		}
	})
}

func TestClient_RemoveExpenseWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Expenses"}
	if err := c.RemoveExpense(context.Background(), "e1"); err == nil {
		t.Fatal("expected error without service")
	}
}
