package models

// ViresRequest is the JSON body posted to the VirES data server for one
// collection window. Times are ISO-8601 without zone suffix, UTC implied,
// matching what the server's own clients send.
type ViresRequest struct {
	Collection   string   `json:"collection"`
	Measurements []string `json:"measurements,omitempty"`
	Models       []string `json:"models,omitempty"`
	Auxiliaries  []string `json:"auxiliaries,omitempty"`
	Filters      []string `json:"filters,omitempty"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	Asynchronous bool     `json:"asynchronous"`
}

// ViresVariable is one returned array. Values arrive flattened row-major with
// Shape giving the logical dimensions, the same layout paldata uses.
type ViresVariable struct {
	Dims   []string  `json:"dims,omitempty"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
	Units  string    `json:"units,omitempty"`
}

// ViresResponse is the decoded server reply for one collection.
type ViresResponse struct {
	Collection string                   `json:"collection"`
	Times      []int64                  `json:"times"`
	Variables  map[string]ViresVariable `json:"variables"`
	Attrs      map[string]string        `json:"attrs,omitempty"`
}
