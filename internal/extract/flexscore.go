package extract

import "strings"

// FlexScore tolerates both JSON number and JSON string score encodings; the
// listing endpoint usually reports a number but rendered fallbacks report
// abbreviated text ("1.2k").
type FlexScore string

func (s *FlexScore) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		raw = ""
	}
	*s = FlexScore(raw)
	return nil
}
