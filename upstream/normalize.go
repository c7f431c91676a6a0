package upstream

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Availability is the canonical shape of one award-availability record. The
// upstream has shipped both PascalCase and snake_case field names across API
// revisions; the adapter below folds every known variant into this one type
// at the boundary so nothing downstream probes alternate spellings.
type Availability struct {
	ID                 string `json:"id,omitempty"`
	Date               string `json:"date,omitempty"`
	OriginAirport      string `json:"origin_airport,omitempty"`
	DestinationAirport string `json:"destination_airport,omitempty"`
	Source             string `json:"source,omitempty"`
	Cabin              string `json:"cabin,omitempty"`
	MileageCost        int64  `json:"mileage_cost,omitempty"`
	RemainingSeats     int64  `json:"remaining_seats,omitempty"`
	Airlines           string `json:"airlines,omitempty"`
	Direct             bool   `json:"direct"`
}

// SearchResponse is the canonical envelope returned for search and
// availability calls.
type SearchResponse struct {
	Data  []Availability `json:"data"`
	Count int            `json:"count"`
}

// field-name variants per canonical field, probed in order
var (
	idFields          = []string{"ID", "id"}
	dateFields        = []string{"Date", "date"}
	originFields      = []string{"OriginAirport", "origin_airport"}
	destinationFields = []string{"DestinationAirport", "destination_airport"}
	sourceFields      = []string{"Source", "source"}
	cabinFields       = []string{"Cabin", "cabin"}
	mileageFields     = []string{"MileageCost", "mileage_cost"}
	seatsFields       = []string{"RemainingSeats", "remaining_seats"}
	airlinesFields    = []string{"Airlines", "airlines"}
	directFields      = []string{"Direct", "direct"}
)

// NormalizeSearchBody rewrites an upstream search/availability body into the
// canonical SearchResponse encoding. Bodies without a data array (error
// payloads, unknown shapes) pass through unchanged.
func NormalizeSearchBody(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return body, nil
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return body, nil
	}

	resp := SearchResponse{Data: make([]Availability, 0, len(data.Array()))}
	for _, el := range data.Array() {
		resp.Data = append(resp.Data, normalizeRecord(el))
	}
	resp.Count = len(resp.Data)

	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding normalized response: %w", err)
	}
	return out, nil
}

// normalizeRecord folds one upstream record's field-name variants into the
// canonical Availability.
func normalizeRecord(el gjson.Result) Availability {
	return Availability{
		ID:                 firstString(el, idFields),
		Date:               firstString(el, dateFields),
		OriginAirport:      firstString(el, originFields),
		DestinationAirport: firstString(el, destinationFields),
		Source:             firstString(el, sourceFields),
		Cabin:              firstString(el, cabinFields),
		MileageCost:        firstInt(el, mileageFields),
		RemainingSeats:     firstInt(el, seatsFields),
		Airlines:           firstString(el, airlinesFields),
		Direct:             firstBool(el, directFields),
	}
}

func firstString(el gjson.Result, fields []string) string {
	for _, f := range fields {
		if v := el.Get(f); v.Exists() {
			return v.String()
		}
	}
	return ""
}

func firstInt(el gjson.Result, fields []string) int64 {
	for _, f := range fields {
		if v := el.Get(f); v.Exists() {
			return v.Int()
		}
	}
	return 0
}

func firstBool(el gjson.Result, fields []string) bool {
	for _, f := range fields {
		if v := el.Get(f); v.Exists() {
			return v.Bool()
		}
	}
	return false
}
