package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSignaturePrefersIdentity(t *testing.T) {
	a := CartItem{Code: "3017620422003", Nom: "Pâte à tartiner", Prix: NewMoneyFromFloat(4.5), Quantity: 1}
	b := CartItem{Code: "3017620422003", Nom: "renamed", Prix: NewMoneyFromFloat(9), Quantity: 4}
	if a.Signature() != b.Signature() {
		t.Fatalf("items with same code must share a signature")
	}
	c := CartItem{Code: "3017620422003", IDSansCode: "fruit-12", Nom: "x"}
	if a.Signature() == c.Signature() {
		t.Fatalf("idSansCode must participate in the signature")
	}
	// 分隔符不能造成身份碰撞
	d := CartItem{Code: "a|b", IDSansCode: ""}
	e := CartItem{Code: "a", IDSansCode: "b"}
	if d.Signature() == e.Signature() {
		t.Fatalf("signature must not collide on separator")
	}
}

func TestSignatureFallbackIgnoresQuantityAndTimestamp(t *testing.T) {
	a := CartItem{Nom: "Banane", Prix: NewMoneyFromFloat(0.3), Quantity: 1}
	b := CartItem{Nom: "Banane", Prix: NewMoneyFromFloat(0.3), Quantity: 5, AjouteLe: FormatTimestamp(time.Now())}
	if a.Signature() != b.Signature() {
		t.Fatalf("fallback signature must be stable across quantity changes")
	}
	c := CartItem{Nom: "Banane", Prix: NewMoneyFromFloat(0.35)}
	if a.Signature() == c.Signature() {
		t.Fatalf("fallback signature must depend on prix")
	}
}

func TestDedupeKeepsLastOccurrence(t *testing.T) {
	items := []CartItem{
		{Code: "A", Nom: "old", Quantity: 1},
		{Code: "B", Nom: "b", Quantity: 1},
		{Code: "A", Nom: "new", Quantity: 3},
	}
	got := DedupeBySignature(items)
	if len(got) != 2 {
		t.Fatalf("want 2 items got %d", len(got))
	}
	if got[0].Code != "B" || got[1].Code != "A" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Nom != "new" || got[1].Quantity != 3 {
		t.Fatalf("last occurrence should win, got %+v", got[1])
	}
}

func TestNormalizedStampsOnlyMissingTimestamp(t *testing.T) {
	now := "2026-10-17T08:00:00.000Z"
	kept := CartItem{Nom: "x", AjouteLe: "2026-01-01T00:00:00.000Z"}.Normalized(now)
	if kept.AjouteLe != "2026-01-01T00:00:00.000Z" {
		t.Fatalf("existing timestamp must be preserved, got %s", kept.AjouteLe)
	}
	if kept.Quantity != 1 {
		t.Fatalf("quantity should default to 1, got %d", kept.Quantity)
	}
	stamped := CartItem{Nom: "x", Quantity: 2}.Normalized(now)
	if stamped.AjouteLe != now || stamped.Quantity != 2 {
		t.Fatalf("unexpected normalized item: %+v", stamped)
	}
}

func TestCartItemJSONShape(t *testing.T) {
	item := CartItem{Code: "A", Nom: "X", Prix: NewMoneyFromFloat(2), Quantity: 1, AjouteLe: "2026-10-17T08:00:00.000Z"}
	payload, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"code":"A","nom":"X","prix":2.00,"quantity":1,"ajoute_le":"2026-10-17T08:00:00.000Z"}`
	if string(payload) != want {
		t.Fatalf("unexpected json:\nwant %s\ngot  %s", want, payload)
	}

	var decoded CartItem
	if err := json.Unmarshal([]byte(`{"idSansCode":"fruit-1","nom":"Pomme","prix":"1.5"}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.IDSansCode != "fruit-1" || decoded.Prix.String() != "1.50" {
		t.Fatalf("unexpected decoded item: %+v", decoded)
	}
}

func TestCartItemsTotals(t *testing.T) {
	items := CartItems{
		{Code: "A", Nom: "a", Prix: NewMoneyFromFloat(2.5), Quantity: 2},
		{Code: "B", Nom: "b", Prix: NewMoneyFromFloat(1.1), Quantity: 0},
	}
	if items.Total().StringFixed(2) != "6.10" {
		t.Fatalf("unexpected total %s", items.Total().StringFixed(2))
	}
	if items.Count() != 3 {
		t.Fatalf("unexpected count %d", items.Count())
	}
}

func TestCartItemsScanRoundTrip(t *testing.T) {
	var items CartItems
	if err := items.Scan([]byte(`[{"code":"A","nom":"a","prix":1,"quantity":2}]`)); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("unexpected scanned items: %+v", items)
	}
	if err := items.Scan(nil); err != nil || len(items) != 0 {
		t.Fatalf("nil scan should yield empty items, err=%v items=%+v", err, items)
	}
}
