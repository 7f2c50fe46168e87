package tripadvisor_test

import (
	"bytes"
	"encoding/json"
)

func jsonInto(body string, out any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	return dec.Decode(out)
}
