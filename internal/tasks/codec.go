package tasks

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Task parameters are stored with Core Deterministic Encoding so equal
// parameter maps always produce identical payloads.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("tasks: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("tasks: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeParams(params map[string]string) ([]byte, error) {
	if params == nil {
		params = map[string]string{}
	}
	payload, err := encMode.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode task params: %w", err)
	}
	return payload, nil
}

func decodeParams(payload []byte) (map[string]string, error) {
	params := map[string]string{}
	if len(payload) == 0 {
		return params, nil
	}
	if err := decMode.Unmarshal(payload, &params); err != nil {
		return nil, fmt.Errorf("decode task params: %w", err)
	}
	return params, nil
}
