package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProductJSONLayout(t *testing.T) {
	p := Product{
		ID:           "mock-001",
		Name:         "Beras Organik",
		FarmLocation: "Subang",
		HarvestDate:  NewDate(2023, time.October, 15),
		Variety:      "Pandan Wangi",
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"mock-001","name":"Beras Organik","farmLocation":"Subang","harvestDate":"2023-10-15","variety":"Pandan Wangi"}`
	if string(data) != want {
		t.Fatalf("unexpected layout:\n got %s\nwant %s", data, want)
	}
	var decoded Product
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != p {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, p)
	}
}

func TestStageJSONRoundTrip(t *testing.T) {
	ts := time.Date(2023, time.October, 16, 8, 30, 0, 0, time.UTC)
	s := ProductStage{
		ID:        "stage-001",
		ProductID: "mock-001",
		StageType: StageHarvest,
		Timestamp: ts,
		Data:      "Panen dilakukan secara manual",
		Actor:     "petani-001",
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ProductStage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Timestamp.Equal(ts) || decoded.ID != s.ID || decoded.Data != s.Data || decoded.Actor != s.Actor {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestDateParseAndCompare(t *testing.T) {
	early, err := ParseDate("2023-09-20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	late, err := ParseDate("2023-11-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !early.Before(late) || !late.After(early) {
		t.Fatalf("expected %s < %s", early, late)
	}
	if early.String() != "2023-09-20" {
		t.Fatalf("unexpected string form %q", early)
	}
	if _, err := ParseDate("20-09-2023"); err == nil {
		t.Fatal("expected parse failure for malformed date")
	}
}

func TestStageTypeLabels(t *testing.T) {
	cases := []struct {
		stage StageType
		known bool
		label string
	}{
		{StageHarvest, true, "Panen"},
		{StageProcess, true, "Pengolahan"},
		{StageDistribute, true, "Distribusi"},
		{StageRetail, true, "Penjualan"},
		{StageType("fermentation"), false, "Tahapan Lain"},
		{StageType(""), false, "Tahapan Lain"},
	}
	for _, c := range cases {
		if c.stage.Known() != c.known {
			t.Fatalf("%q: Known() = %v, want %v", c.stage, c.stage.Known(), c.known)
		}
		if got := c.stage.Label(); got != c.label {
			t.Fatalf("%q: Label() = %q, want %q", c.stage, got, c.label)
		}
	}
}
