package upstream

import (
	"encoding/json"
	"testing"
)

func TestNormalizeSearchBody(t *testing.T) {
	body := []byte(`{
		"data": [
			{
				"ID": "avail-1",
				"Date": "2025-07-01",
				"OriginAirport": "JFK",
				"DestinationAirport": "LHR",
				"Source": "virginatlantic",
				"Cabin": "business",
				"MileageCost": 47500,
				"RemainingSeats": 2,
				"Airlines": "VS",
				"Direct": true
			},
			{
				"id": "avail-2",
				"date": "2025-07-02",
				"origin_airport": "JFK",
				"destination_airport": "CDG",
				"source": "aeroplan",
				"cabin": "economy",
				"mileage_cost": 17500,
				"remaining_seats": 5,
				"airlines": "AC",
				"direct": false
			}
		]
	}`)

	out, err := NormalizeSearchBody(body)
	if err != nil {
		t.Fatalf("NormalizeSearchBody() error = %v", err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if resp.Count != 2 {
		t.Fatalf("Count = %d, want 2", resp.Count)
	}

	pascal, snake := resp.Data[0], resp.Data[1]
	if pascal.ID != "avail-1" || pascal.OriginAirport != "JFK" || pascal.MileageCost != 47500 || !pascal.Direct {
		t.Errorf("PascalCase record not normalized: %+v", pascal)
	}
	if snake.ID != "avail-2" || snake.DestinationAirport != "CDG" || snake.RemainingSeats != 5 || snake.Direct {
		t.Errorf("snake_case record not normalized: %+v", snake)
	}
}

func TestNormalizeSearchBodyPassthrough(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "error payload", body: `{"error":"invalid key"}`},
		{name: "data not an array", body: `{"data":{"trips":1}}`},
		{name: "invalid json", body: `<html>bad gateway</html>`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NormalizeSearchBody([]byte(tt.body))
			if err != nil {
				t.Fatalf("NormalizeSearchBody() error = %v", err)
			}
			if string(out) != tt.body {
				t.Errorf("body changed: got %q, want passthrough %q", out, tt.body)
			}
		})
	}
}

func TestNormalizeSearchBodyEmptyData(t *testing.T) {
	out, err := NormalizeSearchBody([]byte(`{"data":[]}`))
	if err != nil {
		t.Fatalf("NormalizeSearchBody() error = %v", err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Count != 0 || len(resp.Data) != 0 {
		t.Errorf("resp = %+v, want empty data with count 0", resp)
	}
}

func TestNormalizeRecordPrefersPascalCase(t *testing.T) {
	// When both spellings appear, the first variant in the probe order wins.
	out, err := NormalizeSearchBody([]byte(`{"data":[{"MileageCost":100,"mileage_cost":200}]}`))
	if err != nil {
		t.Fatalf("NormalizeSearchBody() error = %v", err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Data[0].MileageCost != 100 {
		t.Errorf("MileageCost = %d, want 100", resp.Data[0].MileageCost)
	}
}
