// Package reviews defines the request, response, and rating types of the
// review submission path.
package reviews

import (
	"encoding/json"
	"strconv"
)

// SubmitRequest is accepted as JSON or as a form. Rating stays textual until
// validation so a malformed value can be reported as such.
type SubmitRequest struct {
	CollegeName string     `json:"college_name"`
	ReviewText  string     `json:"review_text"`
	Rating      FlexString `json:"rating"`
}

type SubmitResponse struct {
	Status      string  `json:"status"`
	CollegeName string  `json:"college_name"`
	Rating      float64 `json:"rating"`
	Message     string  `json:"message"`
}

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) Float() (float64, error) {
	return strconv.ParseFloat(string(f), 64)
}
