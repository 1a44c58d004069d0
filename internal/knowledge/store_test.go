package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaspers-market/chatbridge/pkg/logging"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(logging.NewWithWriter("error", os.Stderr))
}

func TestContextForQuery_RanksByOverlap(t *testing.T) {
	store := testStore(t)
	store.Add(
		Document{Title: "Horaires", Content: "Ouvert du lundi au samedi de 9h à 19h"},
		Document{Title: "Livraison", Content: "Livraison gratuite à partir de 50 euros, délai 48h"},
		Document{Title: "Paiement", Content: "Paiement à la livraison en espèces ou par carte"},
	)

	fragment, err := store.ContextForQuery(context.Background(), "quels sont vos horaires le samedi")
	if err != nil {
		t.Fatalf("ContextForQuery returned error: %v", err)
	}
	if !strings.Contains(fragment, "Horaires") {
		t.Fatalf("expected hours document in fragment, got %q", fragment)
	}
	if !strings.HasPrefix(fragment, "INFORMATIONS DU MAGASIN:") {
		t.Fatalf("expected fragment header, got %q", fragment)
	}
}

func TestContextForQuery_NoMatchIsEmptyNotError(t *testing.T) {
	store := testStore(t)
	store.Add(Document{Title: "Horaires", Content: "Ouvert du lundi au samedi"})

	fragment, err := store.ContextForQuery(context.Background(), "xyzzy")
	if err != nil {
		t.Fatalf("ContextForQuery returned error: %v", err)
	}
	if fragment != "" {
		t.Fatalf("expected empty fragment for a miss, got %q", fragment)
	}
}

func TestContextForQuery_EmptyStoreAndEmptyQuery(t *testing.T) {
	store := testStore(t)

	if got, err := store.ContextForQuery(context.Background(), "livraison"); err != nil || got != "" {
		t.Fatalf("empty store: got %q, %v", got, err)
	}

	store.Add(Document{Content: "Livraison gratuite"})
	if got, err := store.ContextForQuery(context.Background(), "de la"); err != nil || got != "" {
		t.Fatalf("stop-word query: got %q, %v", got, err)
	}
}

func TestContextForQuery_CapsAtTopK(t *testing.T) {
	store := testStore(t)
	store.Add(
		Document{Content: "yassa poulet disponible"},
		Document{Content: "yassa poisson disponible"},
		Document{Content: "thieboudienne yassa disponible"},
		Document{Content: "mafé yassa disponible"},
	)

	fragment, err := store.ContextForQuery(context.Background(), "yassa")
	if err != nil {
		t.Fatalf("ContextForQuery returned error: %v", err)
	}
	if strings.Contains(fragment, "4.") {
		t.Fatalf("expected at most %d documents, got %q", defaultTopK, fragment)
	}
	if !strings.Contains(fragment, "3.") {
		t.Fatalf("expected three documents, got %q", fragment)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge.json")
	data := `[{"title":"Retours","content":"Retours acceptés sous 14 jours"}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := testStore(t)
	if err := store.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	fragment, err := store.ContextForQuery(context.Background(), "politique de retours")
	if err != nil {
		t.Fatalf("ContextForQuery returned error: %v", err)
	}
	if !strings.Contains(fragment, "14 jours") {
		t.Fatalf("expected loaded document in fragment, got %q", fragment)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	store := testStore(t)
	if err := store.LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := store.LoadFile(path); err == nil {
		t.Fatal("expected error for malformed file")
	}
}
