//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"unidiary/internal/core"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorRoundTrip(t *testing.T) {
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	e := core.Expense{
		ID:                 "integration-" + time.Now().Format("20060102150405"),
		Amount:             core.Money{Cents: 123},
		Category:           core.CategoryOther,
		Description:        "integration test",
		Date:               core.DateOf(time.Now()),
		RecurrenceInterval: core.RecurrenceNone,
	}

	first, err := client.UpsertExpense(ctx, e)
	if err != nil {
		t.Fatalf("UpsertExpense: %v", err)
	}
	e.Description = "integration test (updated)"
	second, err := client.UpsertExpense(ctx, e)
	if err != nil {
		t.Fatalf("UpsertExpense update: %v", err)
	}
	if first != second {
		t.Errorf("update should rewrite the same row: %s vs %s", first, second)
	}

	if err := client.RemoveExpense(ctx, e.ID); err != nil {
		t.Fatalf("RemoveExpense: %v", err)
	}
}
